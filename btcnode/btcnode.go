// Package btcnode is the inbound block-source boundary:
// a thin client over the base-chain node's p2p wire protocol that hands the
// governance engine RawBlocks, one at a time, in height order. Connection
// lifecycle and wire decoding are a standard p2p client's job; only the
// delivered types are this module's own govblock.RawBlock, since
// colored-coin classification happens one layer up, not here.
package btcnode

import (
	"fmt"
	"net"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/peer"
	"github.com/btcsuite/btcd/wire"

	"github.com/govblock/daoengine/govblock"
)

// Node is a connected outbound peer that can be asked to wait for the next
// relayed block or fetch one by hash.
type Node struct {
	*peer.Peer
	tmout   time.Duration
	blockCh chan *wire.MsgBlock
	invCh   chan *wire.MsgInv
}

// Connect dials addr over the Bitcoin-like p2p wire protocol and completes
// the version/verack handshake.
func Connect(addr string, tmout time.Duration) (*Node, error) {
	result := &Node{tmout: tmout}

	verackCh := make(chan bool)
	peerCfg := &peer.Config{
		DisableRelayTx:   true,
		UserAgentName:    "daoengine",
		UserAgentVersion: "0.0.1",
		ChainParams:      &chaincfg.MainNetParams,
		TrickleInterval:  time.Second * 10,
		Listeners: peer.MessageListeners{
			OnVerAck: func(p *peer.Peer, msg *wire.MsgVerAck) {
				verackCh <- true
			},
			OnBlock: func(_ *peer.Peer, msg *wire.MsgBlock, buf []byte) {
				if result.blockCh != nil {
					result.blockCh <- msg
				}
			},
			OnInv: func(p *peer.Peer, msg *wire.MsgInv) {
				if result.invCh != nil {
					result.invCh <- msg
				}
			},
		},
	}

	p, err := peer.NewOutboundPeer(peerCfg, addr)
	if err != nil {
		return nil, err
	}

	conn, err := net.Dial("tcp", p.Addr())
	if err != nil {
		return nil, err
	}
	p.AssociateConnection(conn)

	select {
	case <-verackCh:
	case <-time.After(tmout):
		p.Disconnect()
		return nil, fmt.Errorf("btcnode: connection timeout")
	}
	result.Peer = p
	return result, nil
}

func (n *Node) Close() error {
	n.Disconnect()
	return nil
}

// WaitForBlock blocks until the node relays a new block inv and returns
// its fetched content as a RawBlock, or until interrupt fires.
func (n *Node) WaitForBlock(interrupt chan bool) (*govblock.RawBlock, error) {
	if interrupt == nil {
		interrupt = make(chan bool)
	}
	if n.invCh == nil {
		n.invCh = make(chan *wire.MsgInv)
	}

	for {
		var msg *wire.MsgInv
		select {
		case msg = <-n.invCh:
		case <-interrupt:
			return nil, fmt.Errorf("btcnode: interrupted")
		}
		if msg == nil {
			continue
		}
		for _, inv := range msg.InvList {
			if inv.Type == wire.InvTypeBlock || inv.Type == wire.InvTypeWitnessBlock {
				return n.getBlock(govblock.Uint256(inv.Hash))
			}
		}
	}
}

func (n *Node) getBlock(hash govblock.Uint256) (*govblock.RawBlock, error) {
	if n.blockCh == nil {
		n.blockCh = make(chan *wire.MsgBlock)
	}

	gdmsg := wire.NewMsgGetData()
	gdmsg.AddInvVect(wire.NewInvVect(wire.InvTypeWitnessBlock, (*chainhash.Hash)(&hash)))
	n.QueueMessage(gdmsg, nil)

	var block *wire.MsgBlock
	select {
	case block = <-n.blockCh:
	case <-time.After(n.tmout):
		return nil, fmt.Errorf("btcnode: timeout fetching block %s", hash)
	}
	return rawBlockFromMsgBlock(block), nil
}

func rawBlockFromMsgBlock(mb *wire.MsgBlock) *govblock.RawBlock {
	rb := &govblock.RawBlock{
		Magic: govblock.MainNetMagic,
		RawBlockHeader: &govblock.RawBlockHeader{
			Version:        uint32(mb.Header.Version),
			PrevHash:       govblock.Uint256(mb.Header.PrevBlock),
			HashMerkleRoot: govblock.Uint256(mb.Header.MerkleRoot),
			Time:           uint32(mb.Header.Timestamp.Unix()),
			Bits:           mb.Header.Bits,
			Nonce:          mb.Header.Nonce,
		},
		Txs: make(govblock.RawTxList, 0, len(mb.Transactions)),
	}
	for _, mtx := range mb.Transactions {
		rb.Txs = append(rb.Txs, rawTxFromMsgTx(mtx))
	}
	return rb
}

func rawTxFromMsgTx(mtx *wire.MsgTx) *govblock.RawTx {
	tx := &govblock.RawTx{
		Version:  uint32(mtx.Version),
		TxIns:    make(govblock.RawTxInList, 0, len(mtx.TxIn)),
		TxOuts:   make(govblock.RawTxOutList, 0, len(mtx.TxOut)),
		LockTime: uint32(mtx.LockTime),
	}
	for _, in := range mtx.TxIn {
		txin := &govblock.RawTxIn{
			PrevOut: govblock.OutPoint{
				Hash: govblock.Uint256(in.PreviousOutPoint.Hash),
				N:    in.PreviousOutPoint.Index,
			},
			ScriptSig: in.SignatureScript,
			Sequence:  in.Sequence,
		}
		for _, w := range in.Witness {
			txin.Witness = append(txin.Witness, w)
		}
		if len(txin.Witness) > 0 {
			tx.SegWit = true
		}
		tx.TxIns = append(tx.TxIns, txin)
	}
	for _, out := range mtx.TxOut {
		tx.TxOuts = append(tx.TxOuts, &govblock.RawTxOut{
			Value:        out.Value,
			ScriptPubKey: out.PkScript,
		})
	}
	return tx
}
