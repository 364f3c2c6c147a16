package server

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"chat-relay/protocol"
	"chat-relay/repositories"
)

func startServer(t *testing.T, cfg Config) *Server {
	t.Helper()

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	writer, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })

	gateway := repositories.NewBadgerGateway(db, writer, slog.Default())

	cfg.Addr = "127.0.0.1:0"
	srv := New(cfg, gateway, nil, slog.Default())
	require.NoError(t, srv.Bind())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = srv.Serve(ctx) }()

	return srv
}

// testClient wraps one TCP connection to the server under test.
type testClient struct {
	t       *testing.T
	conn    net.Conn
	scanner *bufio.Scanner
}

func dialServer(t *testing.T, srv *Server) *testClient {
	t.Helper()
	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &testClient{t: t, conn: conn, scanner: bufio.NewScanner(conn)}
}

func (c *testClient) send(line string) {
	c.t.Helper()
	_, err := fmt.Fprintf(c.conn, "%s\n", line)
	require.NoError(c.t, err)
}

// expect reads lines until one starts with any of the given prefixes and
// returns it. Asynchronous pushes that happen to interleave, like roster
// broadcasts triggered by another client's login, are skipped.
func (c *testClient) expect(prefixes ...string) string {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for c.scanner.Scan() {
		line := c.scanner.Text()
		for _, prefix := range prefixes {
			if strings.HasPrefix(line, prefix) {
				return line
			}
		}
	}
	c.t.Fatalf("connection ended while waiting for %v: %v", prefixes, c.scanner.Err())
	return ""
}

func TestServer_EndToEnd(t *testing.T) {
	req := require.New(t)
	srv := startServer(t, Config{
		MaxSessions:    16,
		OutboundBuffer: 64,
		HistoryLimit:   100,
		SearchLimit:    10,
	})

	alice := dialServer(t, srv)
	carol := dialServer(t, srv)

	// Accounts. bob registers but never connects.
	alice.send("REGISTER|alice::hunter22")
	req.Equal(protocol.RegisterOK, alice.expect("REGISTER_"))
	alice.send("REGISTER|bob::hunter22")
	req.Equal(protocol.RegisterOK, alice.expect("REGISTER_"))
	carol.send("REGISTER|carol::hunter22")
	req.Equal(protocol.RegisterOK, carol.expect("REGISTER_"))

	alice.send("LOGIN|alice::hunter22")
	req.True(strings.HasPrefix(alice.expect("LOGIN_"), "LOGIN_OK|"))
	carol.send("LOGIN|carol::hunter22")
	req.True(strings.HasPrefix(carol.expect("LOGIN_"), "LOGIN_OK|"))

	// Online unicast: carol receives the push.
	alice.send("MSG|TO::carol|hi carol")
	req.Equal("INCOMING_PRIVATE|alice|hi carol", carol.expect("INCOMING_PRIVATE|"))

	// Offline unicast: no delivery, but the log survives for history.
	alice.send("MSG|TO::bob|hi bob, see you tomorrow")
	alice.send("HISTORY_PRIVATE|bob")
	line := alice.expect("HISTORY_PRIVATE_")
	req.Contains(line, "alice: hi bob, see you tomorrow")
	req.Equal(protocol.PrivateHistoryEnd, alice.expect("HISTORY_PRIVATE_END"))

	// Group: alice creates, carol joins, both get the fan-out.
	alice.send("CREATE_GROUP|ops")
	created := alice.expect("CREATE_GROUP_")
	req.True(strings.HasPrefix(created, "CREATE_GROUP_OK|"))
	groupID := strings.TrimPrefix(created, "CREATE_GROUP_OK|")

	carol.send("JOIN_GROUP|" + groupID)
	req.Equal("JOIN_GROUP_OK|"+groupID, carol.expect("JOIN_GROUP_"))

	alice.send("MSG|GROUP::" + groupID + "|deploy finished")
	want := "INCOMING_GROUP|" + groupID + "|alice|deploy finished"
	req.Equal(want, alice.expect("INCOMING_GROUP|"))
	req.Equal(want, carol.expect("INCOMING_GROUP|"))

	// Group history replays the log.
	carol.send("HISTORY_GROUP|" + groupID)
	req.Contains(carol.expect("HISTORY_GROUP_"), "alice: deploy finished")
	req.Equal(protocol.GroupHistoryEnd, carol.expect("HISTORY_GROUP_END"))

	// Roster lists every registered account, online or not.
	alice.send("GET_USERS")
	var roster []string
	for {
		line := alice.expect("USER")
		if line == protocol.UserEnd {
			break
		}
		roster = append(roster, strings.TrimPrefix(line, "USER|"))
	}
	req.Subset(roster, []string{"alice", "bob", "carol"})

	// Search finds the logged private message.
	alice.send("SEARCH|tomorrow")
	req.Contains(alice.expect("SEARCH_"), "see you tomorrow")
	req.Equal(protocol.SearchEnd, alice.expect("SEARCH_END"))
}

func TestServer_LogoutFreesThePresenceSlot(t *testing.T) {
	req := require.New(t)
	srv := startServer(t, Config{
		MaxSessions:    16,
		OutboundBuffer: 64,
		HistoryLimit:   100,
		SearchLimit:    10,
	})

	first := dialServer(t, srv)
	first.send("REGISTER|alice::hunter22")
	req.Equal(protocol.RegisterOK, first.expect("REGISTER_"))
	first.send("LOGIN|alice::hunter22")
	req.True(strings.HasPrefix(first.expect("LOGIN_"), "LOGIN_OK|"))

	first.send("LOGOUT")
	req.Eventually(func() bool {
		_, online := srv.registry.Lookup("alice")
		return !online
	}, 3*time.Second, 10*time.Millisecond)

	second := dialServer(t, srv)
	second.send("LOGIN|alice::hunter22")
	req.True(strings.HasPrefix(second.expect("LOGIN_"), "LOGIN_OK|"))
}

func TestServer_CapacityRejection(t *testing.T) {
	req := require.New(t)
	srv := startServer(t, Config{
		MaxSessions:    1,
		OutboundBuffer: 64,
		HistoryLimit:   100,
		SearchLimit:    10,
	})

	first := dialServer(t, srv)
	first.send("GET_USERS")
	req.Equal(protocol.ErrNotAuthenticated, first.expect("ERR|"))

	second := dialServer(t, srv)
	req.Equal(protocol.ErrServerFull, second.expect("ERR|"))

	// The rejected connection is closed by the server.
	_ = second.conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	req.False(second.scanner.Scan())
}
