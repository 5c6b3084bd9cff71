package ledger

import (
	"errors"
	"testing"

	"github.com/govblock/daoengine/govblock"
)

func mkRawBlock(prevHash govblock.Uint256, height uint32, txs ...*govblock.RawTx) *govblock.RawBlock {
	return &govblock.RawBlock{
		RawBlockHeader: &govblock.RawBlockHeader{
			Version:  1,
			PrevHash: prevHash,
			Time:     uint32(height),
		},
		Txs: govblock.RawTxList(txs),
	}
}

func mkRawTx(lockTime uint32, ins []govblock.OutPoint, values ...int64) *govblock.RawTx {
	tx := &govblock.RawTx{Version: 1, LockTime: lockTime}
	for _, in := range ins {
		tx.TxIns = append(tx.TxIns, &govblock.RawTxIn{PrevOut: in, Sequence: 0xffffffff})
	}
	for _, v := range values {
		tx.TxOuts = append(tx.TxOuts, &govblock.RawTxOut{Value: v})
	}
	return tx
}

// Genesis with a capped remainder: the second output's raw value exceeds
// the supply left after the first, so its colored Value is truncated to
// what's left rather than spilling into a whole extra BTC_OUT record.
func TestGenesis_LatchCapsSupply(t *testing.T) {
	genesisTx := mkRawTx(0, nil, 600, 500)
	genesisTxID := genesisTx.Hash()

	cfg := Config{GenesisTxID: genesisTxID, GenesisHeight: 100, TotalSupply: 1000}
	st := NewState(cfg)

	raw := mkRawBlock(govblock.Uint256{}, 100, genesisTx)
	block, err := st.ParseBlock(raw, 100)
	if err != nil {
		t.Fatalf("ParseBlock: %v", err)
	}
	if st.ChainHeight() != 100 {
		t.Fatalf("chain height = %d, want 100", st.ChainHeight())
	}
	if len(block.Txs) != 1 {
		t.Fatalf("want 1 tx, got %d", len(block.Txs))
	}
	gtx := block.Txs[0]
	if gtx.Type != TxGenesis {
		t.Fatalf("tx type = %v, want GENESIS", gtx.Type)
	}
	if gtx.TxOuts[0].Type != OutputGenesis || gtx.TxOuts[0].Value != 600 {
		t.Errorf("out0 = %v/%d, want GENESIS/600", gtx.TxOuts[0].Type, gtx.TxOuts[0].Value)
	}
	if gtx.TxOuts[1].Type != OutputGenesis || gtx.TxOuts[1].Value != 400 {
		t.Errorf("out1 = %v/%d, want GENESIS/400 (capped at remaining supply)", gtx.TxOuts[1].Type, gtx.TxOuts[1].Value)
	}
}

func TestGenesis_OutputsAfterCapAreBTC(t *testing.T) {
	genesisTx := mkRawTx(0, nil, 1000, 250)
	genesisTxID := genesisTx.Hash()

	cfg := Config{GenesisTxID: genesisTxID, GenesisHeight: 100, TotalSupply: 1000}
	st := NewState(cfg)

	raw := mkRawBlock(govblock.Uint256{}, 100, genesisTx)
	block, err := st.ParseBlock(raw, 100)
	if err != nil {
		t.Fatalf("ParseBlock: %v", err)
	}
	gtx := block.Txs[0]
	if gtx.TxOuts[0].Type != OutputGenesis || gtx.TxOuts[0].Value != 1000 {
		t.Errorf("out0 = %v/%d, want GENESIS/1000", gtx.TxOuts[0].Type, gtx.TxOuts[0].Value)
	}
	if gtx.TxOuts[1].Type != OutputBTC || gtx.TxOuts[1].Value != 250 {
		t.Errorf("out1 = %v/%d, want BTC_OUT/250", gtx.TxOuts[1].Type, gtx.TxOuts[1].Value)
	}
}

// Test scenario 2: simple transfer spending a colored genesis output.
func TestTransfer_Simple(t *testing.T) {
	genesisTx := mkRawTx(0, nil, 600, 400)
	genesisTxID := genesisTx.Hash()

	cfg := Config{GenesisTxID: genesisTxID, GenesisHeight: 100, TotalSupply: 1000}
	st := NewState(cfg)

	b100 := mkRawBlock(govblock.Uint256{}, 100, genesisTx)
	if _, err := st.ParseBlock(b100, 100); err != nil {
		t.Fatalf("genesis ParseBlock: %v", err)
	}
	hash100 := b100.Hash()

	transferTx := mkRawTx(0, []govblock.OutPoint{{Hash: genesisTxID, N: 0}}, 200, 300, 100)
	b101 := mkRawBlock(hash100, 101, transferTx)
	block, err := st.ParseBlock(b101, 101)
	if err != nil {
		t.Fatalf("ParseBlock 101: %v", err)
	}
	tx := block.Txs[0]
	if tx.Type != TxTransferColored {
		t.Fatalf("tx type = %v, want TRANSFER_COLORED", tx.Type)
	}
	if tx.BurntFee != 0 {
		t.Errorf("burnt fee = %d, want 0", tx.BurntFee)
	}
	for i, want := range []uint64{200, 300, 100} {
		if tx.TxOuts[i].Type != OutputColored || tx.TxOuts[i].Value != want {
			t.Errorf("out%d = %v/%d, want COLORED/%d", i, tx.TxOuts[i].Type, tx.TxOuts[i].Value, want)
		}
	}
}

// Test scenario 4: under-funded output latches all subsequent outputs to
// BTC_OUT regardless of their own value.
func TestClassifier_UnderfundedLatch(t *testing.T) {
	genesisTx := mkRawTx(0, nil, 100)
	genesisTxID := genesisTx.Hash()

	cfg := Config{GenesisTxID: genesisTxID, GenesisHeight: 100, TotalSupply: 1000}
	st := NewState(cfg)

	b100 := mkRawBlock(govblock.Uint256{}, 100, genesisTx)
	if _, err := st.ParseBlock(b100, 100); err != nil {
		t.Fatalf("genesis: %v", err)
	}
	hash100 := b100.Hash()

	tx103 := mkRawTx(0, []govblock.OutPoint{{Hash: genesisTxID, N: 0}}, 50, 200, 30)
	b101 := mkRawBlock(hash100, 101, tx103)
	block, err := st.ParseBlock(b101, 101)
	if err != nil {
		t.Fatalf("ParseBlock: %v", err)
	}
	tx := block.Txs[0]
	if tx.TxOuts[0].Type != OutputColored || tx.TxOuts[0].Value != 50 {
		t.Errorf("out0 = %v/%d, want COLORED/50", tx.TxOuts[0].Type, tx.TxOuts[0].Value)
	}
	if tx.TxOuts[1].Type != OutputBTC {
		t.Errorf("out1 = %v, want BTC_OUT (latch)", tx.TxOuts[1].Type)
	}
	if tx.TxOuts[2].Type != OutputBTC {
		t.Errorf("out2 = %v, want BTC_OUT regardless of its own small value", tx.TxOuts[2].Type)
	}
	if tx.Type != TxTransferColored {
		t.Errorf("tx type = %v, want TRANSFER_COLORED (out0 accepted)", tx.Type)
	}
}

// A scheduled compensation issuance: the payout tx's first input spends
// the accepted proposal's tx-id, so ParseBlock recognizes it and tags its
// output ISSUANCE rather than running it through the ordinary
// colored-input classifier (it has no colored input to spend forward).
func TestClassifier_ScheduledIssuanceTagsOutput(t *testing.T) {
	genesisTx := mkRawTx(0, nil, 100)
	genesisTxID := genesisTx.Hash()

	cfg := Config{GenesisTxID: genesisTxID, GenesisHeight: 100, TotalSupply: 1000}
	st := NewState(cfg)

	b100 := mkRawBlock(govblock.Uint256{}, 100, genesisTx)
	if _, err := st.ParseBlock(b100, 100); err != nil {
		t.Fatalf("genesis: %v", err)
	}
	hash100 := b100.Hash()

	proposalTxID := govblock.Uint256{9, 9, 9}
	st.ScheduleIssuance(proposalTxID, 500)

	payoutTx := mkRawTx(0, []govblock.OutPoint{{Hash: proposalTxID, N: 0}}, 500)
	payoutTxID := payoutTx.Hash()
	b101 := mkRawBlock(hash100, 101, payoutTx)
	block, err := st.ParseBlock(b101, 101)
	if err != nil {
		t.Fatalf("ParseBlock: %v", err)
	}

	tx := block.Txs[0]
	if tx.Type != TxTransferColored {
		t.Errorf("tx type = %v, want TRANSFER_COLORED", tx.Type)
	}
	if tx.TxOuts[0].Type != OutputIssuance || tx.TxOuts[0].Value != 500 {
		t.Errorf("out0 = %v/%d, want ISSUANCE/500", tx.TxOuts[0].Type, tx.TxOuts[0].Value)
	}

	amount, ok := st.IssuanceAmount(payoutTxID)
	if !ok || amount != 500 {
		t.Fatalf("IssuanceAmount(payout) = %d/%v, want 500/true", amount, ok)
	}
	if h, ok := st.TxHeight(payoutTxID); !ok || h != 101 {
		t.Fatalf("TxHeight(payout) = %d/%v, want 101/true", h, ok)
	}

	if _, ok := st.pendingIssuance[proposalTxID]; ok {
		t.Errorf("pendingIssuance entry for proposal not consumed")
	}
}

// The payout tx's outputs are capped at the approved amount, the same
// straddle-and-cap rule classifyGenesis applies: a wallet that overpays
// doesn't get to mint extra.
func TestClassifier_ScheduledIssuanceCapsAtApprovedAmount(t *testing.T) {
	genesisTx := mkRawTx(0, nil, 100)
	genesisTxID := genesisTx.Hash()

	cfg := Config{GenesisTxID: genesisTxID, GenesisHeight: 100, TotalSupply: 1000}
	st := NewState(cfg)

	b100 := mkRawBlock(govblock.Uint256{}, 100, genesisTx)
	if _, err := st.ParseBlock(b100, 100); err != nil {
		t.Fatalf("genesis: %v", err)
	}
	hash100 := b100.Hash()

	proposalTxID := govblock.Uint256{7, 7, 7}
	st.ScheduleIssuance(proposalTxID, 300)

	payoutTx := mkRawTx(0, []govblock.OutPoint{{Hash: proposalTxID, N: 0}}, 300, 200)
	b101 := mkRawBlock(hash100, 101, payoutTx)
	block, err := st.ParseBlock(b101, 101)
	if err != nil {
		t.Fatalf("ParseBlock: %v", err)
	}

	tx := block.Txs[0]
	if tx.TxOuts[0].Type != OutputIssuance || tx.TxOuts[0].Value != 300 {
		t.Errorf("out0 = %v/%d, want ISSUANCE/300", tx.TxOuts[0].Type, tx.TxOuts[0].Value)
	}
	if tx.TxOuts[1].Type != OutputBTC {
		t.Errorf("out1 = %v, want BTC_OUT (nothing left of the approved amount)", tx.TxOuts[1].Type)
	}
}

func TestParseBlock_RejectsNonConnecting(t *testing.T) {
	genesisTx := mkRawTx(0, nil, 100)
	cfg := Config{GenesisTxID: genesisTx.Hash(), GenesisHeight: 100, TotalSupply: 1000}
	st := NewState(cfg)

	bad := mkRawBlock(govblock.Uint256{1, 2, 3}, 101, genesisTx)
	if _, err := st.ParseBlock(bad, 101); !errors.Is(err, ErrBlockNotConnecting) {
		t.Fatalf("err = %v, want ErrBlockNotConnecting", err)
	}
}
