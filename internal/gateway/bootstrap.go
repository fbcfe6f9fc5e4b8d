package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/primus/primacron/internal/connection"
)

// SessionIDGenerator produces a new session id for a bootstrapping
// connection. The default (DefaultSessionID) produces four random
// alphanumeric blocks joined by "-".
type SessionIDGenerator func() string

// DefaultSessionID sources its randomness from a random (version 4) UUID,
// whose 32 hex digits are re-chunked into four 8-character blocks joined by "-"
// rather than threading a bespoke RNG through the bootstrap path.
func DefaultSessionID() string {
	compact := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s-%s-%s-%s", compact[0:8], compact[8:16], compact[16:24], compact[24:32])
}

// bootstrap runs the Session Bootstrap sequence for one new
// transport connection: it mints a connection id, generates a session id,
// registers with the Session Directory, and returns a Record carrying the
// tailgator addresses retrieved at registration.
//
// Some realtime transports fire their open event before the request's
// query state is populated, which would force bootstrap to wait a
// scheduler tick. Go's net/http has already parsed the request (and thus
// r.URL.Query()) by the time a handler runs, so that ordering constraint
// is satisfied for free — bootstrap can run as a plain sequential call.
func (n *Node) bootstrap(ctx context.Context, account string) (*connection.Record, error) {
	connID := uuid.NewString()
	sessionID := n.genSessionID()

	tailAddrs, err := n.dir.Register(ctx, account, sessionID, n.nodeURL, connID)
	if err != nil {
		return nil, err
	}

	return connection.NewRecord(connID, account, sessionID, tailAddrs), nil
}
