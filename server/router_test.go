package server

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/mocks"
	"chat-relay/moderation"
)

func testSession(username, userID string) *Session {
	return &Session{
		username: username,
		userID:   userID,
		outbound: make(chan string, 16),
		done:     make(chan struct{}),
		log:      slog.Default(),
	}
}

// drain pops every queued outbound line without blocking.
func drain(s *Session) []string {
	var lines []string
	for {
		select {
		case line := <-s.outbound:
			lines = append(lines, line)
		default:
			return lines
		}
	}
}

func TestRoutePrivate_OnlineRecipient(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	gateway := mocks.NewMockGateway(ctrl)

	registry := NewRegistry()
	alice := testSession("alice", "id-a")
	bob := testSession("bob", "id-b")
	registry.Register("alice", alice)
	registry.Register("bob", bob)

	gateway.EXPECT().UserIDByUsername("bob").Return("id-b", nil)
	var saved domain.Message
	gateway.EXPECT().SaveMessage(gomock.Any()).DoAndReturn(func(m domain.Message) error {
		saved = m
		return nil
	})

	router := NewRouter(registry, gateway, nil, slog.Default())
	router.RoutePrivate(alice, "bob", "hello bob")

	req.Equal([]string{"INCOMING_PRIVATE|alice|hello bob"}, drain(bob))
	req.Empty(drain(alice))

	req.Equal("id-a", saved.SenderID)
	req.Equal("alice", saved.SenderName)
	req.NotNil(saved.RecipientID)
	req.Equal("id-b", *saved.RecipientID)
	req.Nil(saved.GroupID)
	req.Equal("hello bob", saved.Content)
}

func TestRoutePrivate_OfflineRecipientStillLogged(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	gateway := mocks.NewMockGateway(ctrl)

	registry := NewRegistry()
	alice := testSession("alice", "id-a")
	registry.Register("alice", alice)

	gateway.EXPECT().UserIDByUsername("bob").Return("id-b", nil)
	var saved domain.Message
	gateway.EXPECT().SaveMessage(gomock.Any()).DoAndReturn(func(m domain.Message) error {
		saved = m
		return nil
	})

	router := NewRouter(registry, gateway, nil, slog.Default())
	router.RoutePrivate(alice, "bob", "see you later")

	req.NotNil(saved.RecipientID)
	req.Equal("id-b", *saved.RecipientID)
}

func TestRoutePrivate_UnknownRecipientLoggedWithoutID(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	gateway := mocks.NewMockGateway(ctrl)

	registry := NewRegistry()
	alice := testSession("alice", "id-a")
	registry.Register("alice", alice)

	gateway.EXPECT().UserIDByUsername("ghost").Return("", errors.ErrUserNotFound)
	var saved domain.Message
	gateway.EXPECT().SaveMessage(gomock.Any()).DoAndReturn(func(m domain.Message) error {
		saved = m
		return nil
	})

	router := NewRouter(registry, gateway, nil, slog.Default())
	router.RoutePrivate(alice, "ghost", "anyone there")

	req.Nil(saved.RecipientID)
}

func TestRouteGroup_FansOutToPresentMembersOnly(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	gateway := mocks.NewMockGateway(ctrl)

	registry := NewRegistry()
	alice := testSession("alice", "id-a")
	bob := testSession("bob", "id-b")
	carol := testSession("carol", "id-c")
	registry.Register("alice", alice)
	registry.Register("bob", bob)
	registry.Register("carol", carol)

	// carol is online but not a member; dave is a member but offline.
	gateway.EXPECT().GroupMemberIDs("g-1").Return(map[string]struct{}{
		"id-a": {}, "id-b": {}, "id-d": {},
	}, nil)
	gateway.EXPECT().SaveMessage(gomock.Any()).DoAndReturn(func(m domain.Message) error {
		req.NotNil(m.GroupID)
		req.Equal("g-1", *m.GroupID)
		req.Nil(m.RecipientID)
		return nil
	})

	router := NewRouter(registry, gateway, nil, slog.Default())
	router.RouteGroup(alice, "g-1", "standup in five")

	want := []string{"INCOMING_GROUP|g-1|alice|standup in five"}
	req.Equal(want, drain(alice))
	req.Equal(want, drain(bob))
	req.Empty(drain(carol))
}

func TestRouteGroup_MembershipQueriedFreshPerSend(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	gateway := mocks.NewMockGateway(ctrl)

	registry := NewRegistry()
	alice := testSession("alice", "id-a")
	bob := testSession("bob", "id-b")
	registry.Register("alice", alice)
	registry.Register("bob", bob)

	first := gateway.EXPECT().GroupMemberIDs("g-1").Return(map[string]struct{}{"id-a": {}}, nil)
	gateway.EXPECT().GroupMemberIDs("g-1").Return(map[string]struct{}{"id-a": {}, "id-b": {}}, nil).After(first)
	gateway.EXPECT().SaveMessage(gomock.Any()).Return(nil).Times(2)

	router := NewRouter(registry, gateway, nil, slog.Default())

	router.RouteGroup(alice, "g-1", "first")
	req.Empty(drain(bob))

	router.RouteGroup(alice, "g-1", "second")
	req.Equal([]string{"INCOMING_GROUP|g-1|alice|second"}, drain(bob))
}

func TestRouteGroup_UnresolvableGroupStillLogged(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	gateway := mocks.NewMockGateway(ctrl)

	registry := NewRegistry()
	alice := testSession("alice", "id-a")
	registry.Register("alice", alice)

	gateway.EXPECT().GroupMemberIDs("g-404").Return(nil, errors.ErrGroupNotFound)
	gateway.EXPECT().SaveMessage(gomock.Any()).Return(nil)

	router := NewRouter(registry, gateway, nil, slog.Default())
	router.RouteGroup(alice, "g-404", "hello?")
	req.Empty(drain(alice))
}

func TestBroadcastRoster(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	gateway := mocks.NewMockGateway(ctrl)

	registry := NewRegistry()
	alice := testSession("alice", "id-a")
	bob := testSession("bob", "id-b")
	registry.Register("alice", alice)
	registry.Register("bob", bob)

	// The roster is the durable account list: carol appears even though
	// she has no live session.
	gateway.EXPECT().AllUsernames().Return([]string{"alice", "bob", "carol"}, nil)

	router := NewRouter(registry, gateway, nil, slog.Default())
	router.BroadcastRoster()

	want := []string{"USER|alice", "USER|bob", "USER|carol", "USER_END"}
	req.Equal(want, drain(alice))
	req.Equal(want, drain(bob))
}

func TestRoutePrivate_CensorsBeforeDeliveryAndLogging(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	gateway := mocks.NewMockGateway(ctrl)

	registry := NewRegistry()
	alice := testSession("alice", "id-a")
	bob := testSession("bob", "id-b")
	registry.Register("alice", alice)
	registry.Register("bob", bob)

	gateway.EXPECT().UserIDByUsername("bob").Return("id-b", nil)
	var saved domain.Message
	gateway.EXPECT().SaveMessage(gomock.Any()).DoAndReturn(func(m domain.Message) error {
		saved = m
		return nil
	})

	moderator, err := moderation.NewModerator([]string{"badword"}, '*')
	req.NoError(err)

	router := NewRouter(registry, gateway, &moderator, slog.Default())
	router.RoutePrivate(alice, "bob", "such a badword move")

	req.Equal([]string{"INCOMING_PRIVATE|alice|such a ******* move"}, drain(bob))
	req.Equal("such a ******* move", saved.Content)
}
