package main

import (
	"log"

	"github.com/govblock/daoengine/ballot"
	"github.com/govblock/daoengine/coredb"
	"github.com/govblock/daoengine/db"
	"github.com/govblock/daoengine/govblock"
	"github.com/govblock/daoengine/ledger"
	"github.com/govblock/daoengine/opret"
	"github.com/govblock/daoengine/period"
)

// decodeIntent re-decodes the op-return marker output of a confirmed
// governance tx. ledger.ClassifyTx already did this once to assign output
// types; this wiring layer redoes it to recover the Intent fields
// (commitment hash, revealed key) that classification itself discards
// once it has picked an OutputType.
func decodeIntent(rt *govblock.RawTx) *opret.Intent {
	for _, o := range rt.TxOuts {
		intent, err := opret.DecodeScript(o.ScriptPubKey)
		if err == nil {
			return intent
		}
	}
	return nil
}

// stakeOf sums a blind-vote tx's plain colored outputs, its staked amount.
func stakeOf(tx *ledger.Tx) uint64 {
	var sum uint64
	for _, o := range tx.TxOuts {
		if o.Type == ledger.OutputColored {
			sum += o.Value
		}
	}
	return sum
}

// ingestGovernanceTxs extracts Proposal/BlindVote/VoteReveal records from
// one freshly classified block and feeds them into the Ballot Store, the
// coredb cycle index, and the Postgres snapshot, resolving each tx's
// off-chain payload via payloads along the way. A tx whose payload hasn't
// arrived yet is logged and dropped; there is no retry queue here, the
// same way the ledger package itself never revisits a tx once classified.
func ingestGovernanceTxs(
	store *ballot.Store,
	periods *period.Service,
	cache *coredb.Cache,
	writer *db.PGWriter,
	height int32,
	block *ledger.Block,
	raw *govblock.RawBlock,
	payloads PayloadSource,
	maxDescLen int,
) {
	rawByID := make(map[govblock.Uint256]*govblock.RawTx, len(raw.Txs))
	for _, rt := range raw.Txs {
		rawByID[rt.Hash()] = rt
	}

	cycle, _ := periods.CycleOf(height)
	var cycleIdx uint32
	if cycle != nil {
		cycleIdx = cycle.Index
	}

	for _, tx := range block.Txs {
		switch tx.Type {
		case ledger.TxProposal, ledger.TxCompensationRequest:
			rt, ok := rawByID[tx.TxID]
			if !ok {
				continue
			}
			intent := decodeIntent(rt)
			if intent == nil {
				continue
			}
			body, ok := payloads.Proposal(intent.Hash)
			if !ok {
				log.Printf("daoengine: no gossip body for proposal %s, dropping", tx.TxID)
				continue
			}
			prop := &ballot.Proposal{
				TxID:            tx.TxID,
				CycleIndex:      cycleIdx,
				Kind:            body.Kind,
				Name:            body.Name,
				Title:           body.Title,
				Description:     body.Description,
				Link:            body.Link,
				ParamID:         body.ParamID,
				ParamValue:      body.ParamValue,
				RequestedAmount: body.RequestedAmount,
				AssetTicker:     body.AssetTicker,
			}
			if err := store.AddProposal(prop, maxDescLen); err != nil {
				log.Printf("daoengine: reject proposal %s: %v", tx.TxID, err)
				continue
			}
			if err := cache.IndexBallot(tx.TxID, cycleIdx); err != nil {
				log.Printf("daoengine: cache index proposal %s: %v", tx.TxID, err)
			}
			if err := writer.WriteProposal(proposalRec(prop)); err != nil {
				log.Printf("daoengine: persist proposal %s: %v", tx.TxID, err)
			}

		case ledger.TxBlindVote:
			rt, ok := rawByID[tx.TxID]
			if !ok {
				continue
			}
			intent := decodeIntent(rt)
			if intent == nil {
				continue
			}
			encBallots, encMerit, ok := payloads.BlindVotePayload(intent.Hash)
			if !ok {
				log.Printf("daoengine: no gossip payload for blind vote %s, dropping", tx.TxID)
				continue
			}
			bv := &ballot.BlindVote{
				TxID:       tx.TxID,
				Height:     height,
				Stake:      stakeOf(tx),
				EncBallots: encBallots,
				EncMerit:   encMerit,
				Commitment: intent.Hash,
			}
			store.AddBlindVote(bv)
			if err := cache.IndexBallot(tx.TxID, cycleIdx); err != nil {
				log.Printf("daoengine: cache index blind vote %s: %v", tx.TxID, err)
			}
			if err := writer.WriteBlindVote(blindVoteRec(bv)); err != nil {
				log.Printf("daoengine: persist blind vote %s: %v", tx.TxID, err)
			}

		case ledger.TxVoteReveal:
			rt, ok := rawByID[tx.TxID]
			if !ok || len(tx.TxIns) == 0 {
				continue
			}
			intent := decodeIntent(rt)
			if intent == nil {
				continue
			}
			// A VOTE_REVEAL tx's first input is required to spend the
			// stake output of the BlindVote it reveals; there is no
			// separate on-chain pointer to the target tx-id.
			vr := &ballot.VoteReveal{
				TxID:          tx.TxID,
				Height:        height,
				BlindVoteTxID: tx.TxIns[0].PrevTxID,
				Key:           intent.Key,
				MeritDigest:   intent.MeritDigest,
			}
			store.AddVoteReveal(vr)
			if err := writer.WriteVoteReveal(voteRevealRec(vr)); err != nil {
				log.Printf("daoengine: persist vote reveal %s: %v", tx.TxID, err)
			}
		}
	}
}

func proposalRec(p *ballot.Proposal) *db.ProposalRec {
	return &db.ProposalRec{
		TxID:        p.TxID.String(),
		CycleIndex:  int32(p.CycleIndex),
		Kind:        p.Kind.String(),
		Name:        p.Name,
		Title:       p.Title,
		Description: p.Description,
		Link:        p.Link,
		ParamID:     p.ParamID,
		ParamValue:  p.ParamValue,
		Amount:      p.RequestedAmount,
		AssetTicker: p.AssetTicker,
	}
}

func blindVoteRec(bv *ballot.BlindVote) *db.BlindVoteRec {
	return &db.BlindVoteRec{
		TxID:       bv.TxID.String(),
		Height:     bv.Height,
		Stake:      int64(bv.Stake),
		Commitment: bv.Commitment[:],
	}
}

func voteRevealRec(vr *ballot.VoteReveal) *db.VoteRevealRec {
	return &db.VoteRevealRec{
		TxID:          vr.TxID.String(),
		Height:        vr.Height,
		BlindVoteTxID: vr.BlindVoteTxID.String(),
	}
}

func blockRecFrom(b *ledger.Block) *db.BlockRec {
	rec := &db.BlockRec{
		Height:   b.Height,
		Hash:     b.Hash,
		PrevHash: b.PreviousHash,
		Time:     b.Time,
	}
	for i, tx := range b.Txs {
		trec := &db.TxRec{N: i, TxID: tx.TxID, Type: tx.Type.String()}
		for _, o := range tx.TxOuts {
			trec.Outs = append(trec.Outs, &db.TxOutRec{
				N:     o.Index,
				Value: o.Value,
				Type:  o.Type.String(),
				Addr:  o.Address,
				Spent: o.Spent,
			})
		}
		rec.Txs = append(rec.Txs, trec)
	}
	return rec
}
