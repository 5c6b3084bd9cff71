package ledger

import (
	"errors"
	"fmt"

	"github.com/govblock/daoengine/govblock"
)

// ErrBlockNotConnecting is a linkage failure: the block is
// rejected with no state change.
var ErrBlockNotConnecting = errors.New("ledger: block does not connect to chain tip")

// ErrDuplicateBlock is a height-collision failure. Policy
// (dev-mode fatal vs production log-and-discard) is a caller concern, not
// this library's: State always just returns the error; cmd/daoengine logs
// it and moves on to the next block.
var ErrDuplicateBlock = errors.New("ledger: duplicate block at this height")

// Config fixes the two consensus constants genesis handling needs: the
// configured genesis tx-id/height, and the total colored
// supply the genesis tx may emit before the latch rule kicks in.
type Config struct {
	GenesisTxID    govblock.Uint256
	GenesisHeight  int32
	TotalSupply    uint64
	MaxDescription int // syntactic bound handed to ballot validation elsewhere; kept here for snapshot symmetry
}

// HeightListener and BlockListener are the plain callback shapes State
// dispatches on, in a fixed order:
// onNewBlockHeight, onEmptyBlockAdded, onParseBlockComplete.
type HeightListener func(height int32)
type BlockListener func(b *Block)

// State is the Ledger State: the height-addressed chain of parsed blocks and the colored UTXO
// set. It is mutated only by ParseBlock, run on the single block-ingest
// task; external readers use Snapshot.
type State struct {
	cfg Config

	blocksByHeight map[int32]*Block
	chainHeight    int32
	hasBlocks      bool

	utxo           map[OutputKey]*TxOutput
	txHeight       map[govblock.Uint256]int32
	issuanceAmount map[govblock.Uint256]uint64

	// pendingIssuance holds approved CompensationProposal payouts the Vote
	// Tally Engine has scheduled but ParseBlock hasn't yet seen the payout
	// tx for, keyed by the proposal tx-id it pays out.
	pendingIssuance map[govblock.Uint256]uint64

	onNewBlockHeight     []HeightListener
	onEmptyBlockAdded    []BlockListener
	onParseBlockComplete []BlockListener
}

func NewState(cfg Config) *State {
	return &State{
		cfg:             cfg,
		blocksByHeight:  make(map[int32]*Block),
		utxo:            make(map[OutputKey]*TxOutput),
		txHeight:        make(map[govblock.Uint256]int32),
		issuanceAmount:  make(map[govblock.Uint256]uint64),
		pendingIssuance: make(map[govblock.Uint256]uint64),
	}
}

// ScheduleIssuance records an accepted CompensationProposal payout ahead
// of the block that carries it: the next raw tx ParseBlock sees whose
// first input spends proposalTxID is classified as that proposal's
// ISSUANCE payout instead of through the ordinary colored-input
// classifier, the same way the chain's own GENESIS tx mints supply rather
// than spending it. The caller (the block-ingest loop) is expected to
// call this for every tally.Engine.PendingIssuanceAt(height) entry before
// parsing the block at that height.
func (s *State) ScheduleIssuance(proposalTxID govblock.Uint256, amount uint64) {
	s.pendingIssuance[proposalTxID] = amount
}

// TxHeight returns the height the given tx was confirmed at, used by the
// Vote Tally Engine's merit-decay computation to derive an
// issuance's age.
func (s *State) TxHeight(txid govblock.Uint256) (int32, bool) {
	h, ok := s.txHeight[txid]
	return h, ok
}

// IssuanceAmount returns the total ISSUANCE-type output value of txid, used
// by the Vote Tally Engine to weigh a MeritEntry.
func (s *State) IssuanceAmount(txid govblock.Uint256) (uint64, bool) {
	v, ok := s.issuanceAmount[txid]
	return v, ok
}

func (s *State) OnNewBlockHeight(l HeightListener)    { s.onNewBlockHeight = append(s.onNewBlockHeight, l) }
func (s *State) OnEmptyBlockAdded(l BlockListener)    { s.onEmptyBlockAdded = append(s.onEmptyBlockAdded, l) }
func (s *State) OnParseBlockComplete(l BlockListener) { s.onParseBlockComplete = append(s.onParseBlockComplete, l) }

func (s *State) ChainHeight() int32 { return s.chainHeight }

// ColoredOutput implements Resolver against the persisted, committed UTXO
// set: it returns an unspent colored output, or nil.
func (s *State) ColoredOutput(txid govblock.Uint256, index uint32) *TxOutput {
	o, ok := s.utxo[OutputKey{TxID: txid, Index: index}]
	if !ok || o.Spent || !o.IsColoredFamily() {
		return nil
	}
	return o
}

// blockResolver layers in-block, not-yet-committed classifications on top
// of the persisted UTXO set, for the forward-pass/fixed-point
// algorithm: a prior output created earlier in the same block must resolve
// even before the block as a whole is committed.
type blockResolver struct {
	state      *State
	classified map[govblock.Uint256]*Tx
}

func (r *blockResolver) ColoredOutput(txid govblock.Uint256, index uint32) *TxOutput {
	if tx, ok := r.classified[txid]; ok {
		if int(index) < len(tx.TxOuts) {
			o := tx.TxOuts[index]
			if o.IsColoredFamily() {
				return o
			}
		}
		return nil
	}
	return r.state.ColoredOutput(txid, index)
}

// noInputResolver always reports no colored input, used for
// a tx that remains unresolved after the dependency fixed point: "treated
// as having no colored inputs."
type noInputResolver struct{}

func (noInputResolver) ColoredOutput(govblock.Uint256, uint32) *TxOutput { return nil }

// ParseBlock implements the Block Parser: validates chain
// linkage, detects and synthesizes the genesis tx, classifies every other
// tx via the dependency-chain fixed point, commits the result, and fires
// listeners in that same fixed order.
func (s *State) ParseBlock(raw *govblock.RawBlock, height int32) (*Block, error) {
	if err := s.checkLinkage(raw, height); err != nil {
		return nil, err
	}
	if _, exists := s.blocksByHeight[height]; exists {
		return nil, ErrDuplicateBlock
	}

	for _, l := range s.onNewBlockHeight {
		l(height)
	}

	block := &Block{
		Height:       height,
		Time:         uint64(raw.RawBlockHeader.Time),
		Hash:         raw.Hash(),
		PreviousHash: raw.RawBlockHeader.PrevHash,
	}
	for _, l := range s.onEmptyBlockAdded {
		l(block)
	}

	classified := make(map[govblock.Uint256]*Tx, len(raw.Txs))
	blockTxIDs := make(map[govblock.Uint256]bool, len(raw.Txs))
	for _, rt := range raw.Txs {
		blockTxIDs[rt.Hash()] = true
	}

	var genesisRaw *govblock.RawTx
	isGenesisBlock := height == s.cfg.GenesisHeight
	if isGenesisBlock {
		for _, rt := range raw.Txs {
			if rt.Hash() == s.cfg.GenesisTxID {
				genesisRaw = rt
				break
			}
		}
	}
	if genesisRaw != nil {
		classified[genesisRaw.Hash()] = s.classifyGenesis(genesisRaw, height)
	}

	worklist := make([]*govblock.RawTx, 0, len(raw.Txs))
	for _, rt := range raw.Txs {
		if genesisRaw != nil && rt.Hash() == genesisRaw.Hash() {
			continue
		}
		worklist = append(worklist, rt)
	}

	resolver := &blockResolver{state: s, classified: classified}
	maxPasses := len(worklist)
	for pass := 0; pass < maxPasses && len(worklist) > 0; pass++ {
		var next []*govblock.RawTx
		progressed := false
		for _, rt := range worklist {
			if hasUnresolvedDependency(rt, blockTxIDs, classified) {
				next = append(next, rt)
				continue
			}
			classified[rt.Hash()] = s.classifyOne(rt, height, resolver)
			progressed = true
		}
		worklist = next
		if !progressed {
			break
		}
	}
	// Anything left after the fixed point has no colored input.
	for _, rt := range worklist {
		classified[rt.Hash()] = s.classifyOne(rt, height, noInputResolver{})
	}

	block.Txs = make([]*Tx, 0, len(raw.Txs))
	if genesisRaw != nil {
		block.Txs = append(block.Txs, classified[genesisRaw.Hash()])
	}
	for _, rt := range raw.Txs {
		if genesisRaw != nil && rt.Hash() == genesisRaw.Hash() {
			continue
		}
		block.Txs = append(block.Txs, classified[rt.Hash()])
	}

	s.commit(block)

	for _, l := range s.onParseBlockComplete {
		l(block)
	}
	return block, nil
}

func (s *State) checkLinkage(raw *govblock.RawBlock, height int32) error {
	if !s.hasBlocks {
		if height != s.cfg.GenesisHeight {
			return fmt.Errorf("%w: empty ledger expects genesis height %d, got %d", ErrBlockNotConnecting, s.cfg.GenesisHeight, height)
		}
		return nil
	}
	last, ok := s.blocksByHeight[s.chainHeight]
	if !ok {
		return fmt.Errorf("%w: internal inconsistency, missing tip block", ErrBlockNotConnecting)
	}
	if last.Hash != raw.RawBlockHeader.PrevHash || height != s.chainHeight+1 {
		return ErrBlockNotConnecting
	}
	return nil
}

// commit applies a parsed block's effects to the persisted UTXO set: new
// colored-family outputs become unspent entries, spent colored inputs are
// marked spent (no unspend).
func (s *State) commit(b *Block) {
	for _, tx := range b.Txs {
		s.txHeight[tx.TxID] = b.Height
		for _, in := range tx.TxIns {
			if in.ColoredSpend != nil {
				if o, ok := s.utxo[in.ColoredSpend.Key()]; ok {
					o.Spent = true
				}
			}
		}
		var issued uint64
		for _, out := range tx.TxOuts {
			if out.IsColoredFamily() {
				s.utxo[out.Key()] = out
			}
			if out.Type == OutputIssuance {
				issued += out.Value
			}
		}
		if issued > 0 {
			s.issuanceAmount[tx.TxID] = issued
		}
	}
	s.blocksByHeight[b.Height] = b
	s.chainHeight = b.Height
	s.hasBlocks = true
}

// classifyGenesis synthesizes the GENESIS tx: outputs are assigned type
// GENESIS in order until the configured total supply is exhausted. The
// output that straddles the cap is still GENESIS but its Value is the
// capped colored amount, not its raw output value; the uncolored remainder
// of that same output's satoshis is left untracked, spendable base-chain
// value, the same way an ordinary under-funded latch leaves excess value
// alone rather than manufacturing a second output record. Every output
// after the straddling one is whole BTC_OUT.
func (s *State) classifyGenesis(raw *govblock.RawTx, height int32) *Tx {
	txid := raw.Hash()
	tx := &Tx{Type: TxGenesis, TxID: txid, Height: height}
	tx.TxOuts = make([]*TxOutput, len(raw.TxOuts))

	remaining := s.cfg.TotalSupply
	for i, o := range raw.TxOuts {
		out := &TxOutput{TxID: txid, Index: uint32(i), Value: uint64(o.Value), Address: addressFromScript(o.ScriptPubKey)}
		if remaining == 0 {
			out.Type = OutputBTC
		} else if out.Value <= remaining {
			out.Type = OutputGenesis
			remaining -= out.Value
		} else {
			out.Type = OutputGenesis
			out.Value = remaining
			remaining = 0
		}
		tx.TxOuts[i] = out
	}
	return tx
}

// classifyIssuance synthesizes the approved compensation payout tx for a
// proposal the Vote Tally Engine accepted: outputs are ISSUANCE up to the
// approved amount, straddled and capped the same way classifyGenesis caps
// against total supply, since this value is newly minted rather than
// carried forward from a colored input. The tx's declared type is still
// TRANSFER_COLORED; there is no dedicated ISSUANCE tx type, only an
// ISSUANCE output type.
func (s *State) classifyIssuance(raw *govblock.RawTx, height int32, amount uint64) *Tx {
	txid := raw.Hash()
	tx := &Tx{Type: TxTransferColored, TxID: txid, Height: height}

	tx.TxIns = make([]*TxInput, len(raw.TxIns))
	for i, in := range raw.TxIns {
		tx.TxIns[i] = &TxInput{PrevTxID: in.PrevOut.Hash, PrevIndex: in.PrevOut.N}
	}

	tx.TxOuts = make([]*TxOutput, len(raw.TxOuts))
	remaining := amount
	for i, o := range raw.TxOuts {
		out := &TxOutput{TxID: txid, Index: uint32(i), Value: uint64(o.Value), Address: addressFromScript(o.ScriptPubKey)}
		if remaining == 0 {
			out.Type = OutputBTC
		} else if out.Value <= remaining {
			out.Type = OutputIssuance
			remaining -= out.Value
		} else {
			out.Type = OutputIssuance
			out.Value = remaining
			remaining = 0
		}
		tx.TxOuts[i] = out
	}
	return tx
}

// classifyOne dispatches a single non-genesis raw tx to either the
// ordinary Tx Output Classifier or, if it is the approved payout for a
// pending compensation issuance (identified by convention: its first
// input spends the accepted proposal's tx-id, the same convention
// VOTE_REVEAL uses to identify the blind vote it targets), to
// classifyIssuance instead.
func (s *State) classifyOne(rt *govblock.RawTx, height int32, resolve Resolver) *Tx {
	if len(rt.TxIns) > 0 {
		if amount, ok := s.pendingIssuance[rt.TxIns[0].PrevOut.Hash]; ok {
			delete(s.pendingIssuance, rt.TxIns[0].PrevOut.Hash)
			return s.classifyIssuance(rt, height, amount)
		}
	}
	return ClassifyTx(rt, height, resolve)
}

func hasUnresolvedDependency(rt *govblock.RawTx, blockTxIDs map[govblock.Uint256]bool, classified map[govblock.Uint256]*Tx) bool {
	for _, in := range rt.TxIns {
		if blockTxIDs[in.PrevOut.Hash] {
			if _, done := classified[in.PrevOut.Hash]; !done {
				return true
			}
		}
	}
	return false
}
