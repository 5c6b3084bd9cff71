package ledger

import "github.com/govblock/daoengine/govblock"

// Snapshot is an immutable view handed to external
// collaborators (wallet, UI): a consistent read of the ledger as of the
// last fully-committed block. It holds
// no reference the writer later mutates in place for fields it exposes;
// Block/TxOutput values themselves are append-only except for the Spent
// flag, which readers are expected to treat as advisory for anything older
// than ChainHeight().
type Snapshot struct {
	height int32
	blocks map[int32]*Block
	utxo   map[OutputKey]*TxOutput
}

// Snapshot captures the state's current committed view. Both maps are
// copied, so blocks and outputs committed later do not appear in it; the
// *Block and *TxOutput values themselves are shared with the writer.
func (s *State) Snapshot() Snapshot {
	blocks := make(map[int32]*Block, len(s.blocksByHeight))
	for h, b := range s.blocksByHeight {
		blocks[h] = b
	}
	utxo := make(map[OutputKey]*TxOutput, len(s.utxo))
	for k, o := range s.utxo {
		utxo[k] = o
	}
	return Snapshot{height: s.chainHeight, blocks: blocks, utxo: utxo}
}

func (sn Snapshot) ChainHeight() int32 { return sn.height }

func (sn Snapshot) Block(height int32) (*Block, bool) {
	b, ok := sn.blocks[height]
	return b, ok
}

func (sn Snapshot) ColoredOutput(txid govblock.Uint256, index uint32) (*TxOutput, bool) {
	o, ok := sn.utxo[OutputKey{TxID: txid, Index: index}]
	return o, ok
}

// Blocks returns the committed chain ordered by height, 0..ChainHeight().
func (sn Snapshot) Blocks() []*Block {
	out := make([]*Block, 0, sn.height+1)
	for h := int32(0); h <= sn.height; h++ {
		if b, ok := sn.blocks[h]; ok {
			out = append(out, b)
		}
	}
	return out
}
