package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/govblock/daoengine/ballot"
	"github.com/govblock/daoengine/btcnode"
	"github.com/govblock/daoengine/coredb"
	"github.com/govblock/daoengine/db"
	"github.com/govblock/daoengine/events"
	"github.com/govblock/daoengine/govblock"
	"github.com/govblock/daoengine/ledger"
	"github.com/govblock/daoengine/param"
	"github.com/govblock/daoengine/period"
	"github.com/govblock/daoengine/rlimit"
	"github.com/govblock/daoengine/tally"
)

func main() {
	connStr := flag.String("connstr", "host=/var/run/postgresql dbname=daoengine sslmode=disable", "Db connection string")
	nodeAddr := flag.String("nodeaddr", "", "Bitcoin-like node address")
	nodeTmout := flag.Int("nodetmout", 30, "node timeout in seconds")
	cacheDir := flag.String("cachedir", "./daoengine-cache", "path to the phase/ballot leveldb cache")
	cacheSize := flag.Int("cache-size", 30_000_000, "Tx hashes to cache for prevout resolution")
	genesisTxID := flag.String("genesis-txid", "", "hex tx-id of the genesis transaction")
	genesisHeight := flag.Int("genesis-height", 0, "height of the genesis block")
	totalSupply := flag.Uint64("total-supply", 0, "total colored supply the genesis tx may emit")
	maxDescription := flag.Int("max-description", 4096, "max proposal description length in bytes")

	flag.Parse()

	if *nodeAddr == "" {
		log.Fatalf("-nodeaddr required.")
	}
	if *genesisTxID == "" {
		log.Fatalf("-genesis-txid required.")
	}

	gtxid, err := govblock.Uint256FromString(*genesisTxID)
	if err != nil {
		log.Fatalf("bad -genesis-txid: %v", err)
	}

	if err := rlimit.SetRLimit(1024); err != nil { // leveldb and postgres both open many files
		log.Printf("Error setting rlimit: %v", err)
	}

	reg := param.DefaultRegistry()
	state := ledger.NewState(ledger.Config{
		GenesisTxID:    gtxid,
		GenesisHeight:  int32(*genesisHeight),
		TotalSupply:    *totalSupply,
		MaxDescription: *maxDescription,
	})
	periods := period.NewService(reg, int32(*genesisHeight))
	store := ballot.NewStore()
	engine := tally.NewEngine(reg, store, state)
	bus := events.NewBus()
	payloads := newMemoryPayloadSource()

	cache, err := coredb.Open(*cacheDir)
	if err != nil {
		log.Fatalf("opening cache: %v", err)
	}
	defer cache.Close()

	writer, err := db.NewPGWriter(*connStr, *cacheSize)
	if err != nil {
		log.Fatalf("opening postgres writer: %v", err)
	}
	defer writer.Close()

	wireLedgerEvents(state, periods, bus)

	interrupt := make(chan bool, 1)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		log.Printf("Interrupt, exiting block loop...")
		signal.Stop(sigCh)
		interrupt <- true
	}()

	log.Printf("Connecting to node (%s)...", *nodeAddr)
	node, err := btcnode.Connect(*nodeAddr, time.Duration(*nodeTmout)*time.Second)
	if err != nil {
		log.Fatalf("connecting to node: %v", err)
	}
	defer node.Close()

	nextHeight := int32(*genesisHeight)
	if last, err := writer.LastHeight(); err != nil {
		log.Fatalf("reading last committed height: %v", err)
	} else if last >= 0 {
		nextHeight = last + 1
	}

	log.Printf("Starting block loop at height %d.", nextHeight)
	for len(interrupt) == 0 {
		raw, err := node.WaitForBlock(interrupt)
		if err != nil {
			if len(interrupt) > 0 {
				break
			}
			log.Printf("Error waiting for block: %v", err)
			continue
		}

		if err := periods.AdvanceTo(nextHeight); err != nil {
			log.Fatalf("fatal: advancing period service to height %d: %v", nextHeight, err)
		}

		for _, due := range engine.PendingIssuanceAt(nextHeight) {
			state.ScheduleIssuance(due.ProposalTxID, uint64(due.Amount))
		}

		block, err := state.ParseBlock(raw, nextHeight)
		if err != nil {
			log.Printf("Error parsing block at height %d: %v", nextHeight, err)
			continue
		}

		if cycle, ok := periods.CycleOf(nextHeight); ok {
			if err := cache.PutPhaseBoundary(cycle.Index, cycle.FirstBlock); err != nil {
				log.Printf("Error caching phase boundary for cycle %d: %v", cycle.Index, err)
			}
		}

		ingestGovernanceTxs(store, periods, cache, writer, nextHeight, block, raw, payloads, *maxDescription)

		if err := writer.WriteBlock(blockRecFrom(block)); err != nil {
			log.Printf("Error persisting block %d: %v", nextHeight, err)
		}

		if cycle, ok := periods.CycleOf(nextHeight); ok {
			if resultFirst, ok := cycle.FirstBlockOf(period.Result); ok && resultFirst == nextHeight {
				runCycleResult(engine, writer, cycle, bus)
			}
		}

		if err := engine.ApplyPending(nextHeight); err != nil {
			log.Fatalf("fatal: applying pending param changes at height %d: %v", nextHeight, err)
		}
		for _, due := range engine.IssuanceDueAt(nextHeight) {
			log.Printf("Compensation issuance for proposal %s (amount %d) landed at height %d", due.ProposalTxID, due.Amount, nextHeight)
		}

		nextHeight++
	}

	log.Printf("All done.")
}

// runCycleResult invokes the Vote Tally Engine for cycle, persists each
// proposal's decision, and publishes a CycleComplete event carrying the
// same decisions for any other listener (asset-removal, bond handling) to
// react to.
func runCycleResult(engine *tally.Engine, writer *db.PGWriter, cycle *period.Cycle, bus *events.Bus) {
	decisions, err := engine.RunCycle(cycle)
	if err != nil {
		log.Printf("Error running tally for cycle %d: %v", cycle.Index, err)
		return
	}

	result := &events.CycleResult{CycleIndex: cycle.Index}
	for _, d := range decisions {
		rec := &db.CycleResultRec{
			CycleIndex:   int32(cycle.Index),
			ProposalTxID: d.Proposal.TxID.String(),
			Outcome:      d.Outcome.String(),
			AcceptWeight: int64(d.AcceptWeight),
			RejectWeight: int64(d.RejectWeight),
			TotalStake:   int64(d.TotalStake),
		}
		if err := writer.WriteCycleResult(rec); err != nil {
			log.Printf("Error persisting cycle result for proposal %s: %v", d.Proposal.TxID, err)
		}
		result.Decisions = append(result.Decisions, events.ProposalDecision{
			ProposalTxID: d.Proposal.TxID.String(),
			Outcome:      d.Outcome.String(),
		})
	}
	bus.Publish(events.Event{Kind: events.CycleComplete, Result: result})
}

// wireLedgerEvents bridges ledger.State's plain callbacks and the Period
// Service's phase transitions into typed events.Event values, so a
// listener only ever has to depend on the events package rather than on
// both ledger and period directly.
func wireLedgerEvents(state *ledger.State, periods *period.Service, bus *events.Bus) {
	state.OnNewBlockHeight(func(height int32) {
		bus.Publish(events.Event{Kind: events.NewBlockHeight, Height: height})
	})
	state.OnEmptyBlockAdded(func(b *ledger.Block) {
		bus.Publish(events.Event{Kind: events.EmptyBlockAdded, Block: b})
	})
	state.OnParseBlockComplete(func(b *ledger.Block) {
		bus.Publish(events.Event{Kind: events.ParseBlockComplete, Block: b})
		if periods.PhaseChanged(b.Height) {
			bus.Publish(events.Event{Kind: events.PhaseChanged, Height: b.Height, Phase: periods.PhaseFor(b.Height).String()})
		}
	})
}
