package server

import (
	"log/slog"
	"time"

	"github.com/abadojack/whatlanggo"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/moderation"
	"chat-relay/protocol"
)

// Router decides unicast vs. group fan-out, applies the offline-fallback
// policy, and triggers durable logging. Delivery and logging are
// independent: a logging failure is never surfaced to the sender and a
// missing recipient never prevents the durable log.
type Router struct {
	registry  *Registry
	gateway   contract.Gateway
	moderator *moderation.Moderator // nil disables censoring
	log       *slog.Logger
}

func NewRouter(registry *Registry, gateway contract.Gateway, moderator *moderation.Moderator, log *slog.Logger) *Router {
	return &Router{registry: registry, gateway: gateway, moderator: moderator, log: log}
}

// RoutePrivate pushes the message to the target's live session when one
// exists and always logs it durably, resolving the recipient ID from
// durable storage rather than presence.
func (r *Router) RoutePrivate(sender *Session, toUsername, content string) {
	content = r.sanitize(sender.Username(), content)

	if target, online := r.registry.Lookup(toUsername); online {
		if err := target.Push(protocol.IncomingPrivate(sender.Username(), content)); err != nil {
			r.log.Debug("private delivery dropped", "to", toUsername, "err", err)
		}
	}

	var recipientID *string
	if id, err := r.gateway.UserIDByUsername(toUsername); err == nil {
		recipientID = lo.ToPtr(id)
	}

	msg := domain.Message{
		ID:          uuid.New(),
		SenderID:    sender.UserID(),
		SenderName:  sender.Username(),
		RecipientID: recipientID,
		Content:     content,
		At:          time.Now().UTC(),
	}
	if err := r.gateway.SaveMessage(msg); err != nil {
		r.log.Error("private message logging failed", "from", sender.Username(), "err", err)
	}
}

// RouteGroup fans the message out to the group's currently present
// members and logs it once against the group, however many were
// reachable.
func (r *Router) RouteGroup(sender *Session, groupID, content string) {
	content = r.sanitize(sender.Username(), content)

	for _, member := range r.resolveGroup(groupID) {
		if err := member.Push(protocol.IncomingGroup(groupID, sender.Username(), content)); err != nil {
			r.log.Debug("group delivery dropped", "group", groupID, "to", member.Username(), "err", err)
		}
	}

	msg := domain.Message{
		ID:         uuid.New(),
		SenderID:   sender.UserID(),
		SenderName: sender.Username(),
		GroupID:    lo.ToPtr(groupID),
		Content:    content,
		At:         time.Now().UTC(),
	}
	if err := r.gateway.SaveMessage(msg); err != nil {
		r.log.Error("group message logging failed", "group", groupID, "err", err)
	}
}

// resolveGroup intersects the group's durable member list, queried fresh
// on every send, with the sessions currently registered. Offline members
// are silently excluded.
func (r *Router) resolveGroup(groupID string) []*Session {
	memberIDs, err := r.gateway.GroupMemberIDs(groupID)
	if err != nil {
		r.log.Debug("group resolution failed", "group", groupID, "err", err)
		return nil
	}

	return lo.Filter(r.registry.Snapshot(), func(s *Session, _ int) bool {
		_, member := memberIDs[s.UserID()]
		return member
	})
}

// BroadcastRoster pushes the full durable username list, terminated by
// an end marker, to every registered session. Clients treat it as the
// complete list of known accounts, not an online filter.
func (r *Router) BroadcastRoster() {
	names, err := r.gateway.AllUsernames()
	if err != nil {
		r.log.Warn("roster broadcast skipped", "err", err)
		return
	}
	lines := lo.Map(names, func(name string, _ int) string {
		return protocol.UserLine(name)
	})

	for _, s := range r.registry.Snapshot() {
		for _, line := range lines {
			if err := s.Push(line); err != nil {
				break
			}
		}
		_ = s.Push(protocol.UserEnd)
	}
}

// sanitize censors configured words and reports the hit. Language
// detection only runs when something matched; it exists for moderation
// triage, not for routing.
func (r *Router) sanitize(author, content string) string {
	if r.moderator == nil {
		return content
	}
	censored, found := r.moderator.Censor(content)
	if len(found) > 0 {
		info := whatlanggo.Detect(content)
		r.log.Warn("message censored",
			"author", author,
			"words", len(found),
			"lang", info.Lang.Iso6391(),
		)
	}
	return censored
}
