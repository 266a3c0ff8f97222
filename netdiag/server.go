// Package netdiag serves the neighbor-diagnostic resource: management
// callers page through the neighbor table with the packed cursor the table
// exposes at its boundary.
package netdiag

import (
	"encoding/binary"
	"errors"

	"go.uber.org/zap"

	"github.com/lowpan-platform/meshcp/ip6"
	"github.com/lowpan-platform/meshcp/tmf"
	"github.com/lowpan-platform/meshcp/topology"
)

// PathDiagGet is the neighbor-diagnostic resource.
const PathDiagGet = "d/dg"

// maxEntriesPerResponse keeps a response page within a single datagram.
const maxEntriesPerResponse = 8

// entryLen is extended address (8), locator (2), flags (1), link quality
// (1) and last RSSI (1).
const entryLen = 13

const (
	flagIsChild = 1 << iota
	flagRxOnWhenIdle
	flagFullThreadDevice
)

// Transport is the slice of the management transport the server uses.
type Transport interface {
	AddResource(r *tmf.Resource)
	Reply(req *tmf.Message, info *ip6.MessageInfo, code tmf.Code, payload []byte) error
}

// Server answers neighbor-diagnostic requests.
type Server struct {
	table     *topology.NeighborTable
	transport Transport
	log       *zap.SugaredLogger
}

// New creates a server and installs its resource on the transport.
func New(transport Transport, table *topology.NeighborTable, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	s := &Server{
		table:     table,
		transport: transport,
		log:       log.With(zap.String("module", "netdiag")),
	}
	transport.AddResource(&tmf.Resource{Path: PathDiagGet, Handler: s.handleGet})
	return s
}

// handleGet pages through the neighbor table. The request payload is the
// cursor returned by the previous page, or empty for the first one; the
// response leads with the cursor to pass back next.
func (s *Server) handleGet(msg *tmf.Message, info *ip6.MessageInfo) {
	cursor := topology.IteratorInit
	if len(msg.Payload) >= 2 {
		cursor = topology.Iterator(int16(binary.BigEndian.Uint16(msg.Payload)))
	}

	payload := make([]byte, 2, 2+maxEntriesPerResponse*entryLen)
	var neighInfo topology.NeighborInfo
	for range maxEntriesPerResponse {
		if err := s.table.NextNeighborInfo(&cursor, &neighInfo); err != nil {
			if !errors.Is(err, topology.ErrNotFound) {
				s.log.Warnw("neighbor enumeration failed", zap.Error(err))
			}
			break
		}
		payload = appendEntry(payload, &neighInfo)
	}

	binary.BigEndian.PutUint16(payload[:2], uint16(int16(cursor)))

	if err := s.transport.Reply(msg, info, tmf.CodeContent, payload); err != nil {
		s.log.Warnw("failed to send diagnostic response", zap.Error(err))
	}
}

func appendEntry(payload []byte, info *topology.NeighborInfo) []byte {
	payload = append(payload, info.ExtAddr[:]...)
	payload = binary.BigEndian.AppendUint16(payload, uint16(info.Rloc16))

	var flags byte
	if info.IsChild {
		flags |= flagIsChild
	}
	if info.RxOnWhenIdle {
		flags |= flagRxOnWhenIdle
	}
	if info.FullThreadDevice {
		flags |= flagFullThreadDevice
	}
	payload = append(payload, flags, info.LinkQualityIn, byte(info.LastRssi))
	return payload
}
