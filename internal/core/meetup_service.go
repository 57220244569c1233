package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"geomeet.io/geo-meet/internal/store"
)

type Action string

const (
	ActionAccept   Action = "accept"
	ActionDecline  Action = "decline"
	ActionComplete Action = "complete"
	ActionFeedback Action = "feedback"
)

func (a Action) known() bool {
	switch a {
	case ActionAccept, ActionDecline, ActionComplete, ActionFeedback:
		return true
	}
	return false
}

const DefaultAdvanceRetries = 3

type AdvanceRequest struct {
	MeetupID string
	// ActorID must already be authenticated by the caller.
	ActorID  string
	Action   Action
	Reaction string // required for ActionFeedback
}

type MeetupService struct {
	dbStore    store.Store
	maxRetries int
}

func NewMeetupService(db store.Store, maxRetries int) *MeetupService {
	if maxRetries <= 0 {
		maxRetries = DefaultAdvanceRetries
	}
	return &MeetupService{dbStore: db, maxRetries: maxRetries}
}

// Propose creates a pending meetup. participants[0] is the inviter and is
// recorded as having accepted.
func (s *MeetupService) Propose(ctx context.Context, participants []string, meetupType store.MeetupType) (*store.Meetup, error) {
	if len(participants) != 2 || meetupType == "" {
		return nil, validationError("Missing participants or type")
	}
	cleaned := make([]string, len(participants))
	for i, p := range participants {
		cleaned[i] = strings.TrimSpace(p)
		if cleaned[i] == "" {
			return nil, validationError("Missing participants or type")
		}
	}
	if strings.EqualFold(cleaned[0], cleaned[1]) {
		return nil, validationError("participants must be two different users")
	}
	if meetupType != store.MeetupTypeLunch && meetupType != store.MeetupTypeAfterOffice {
		return nil, validationError("type must be one of lunch, after-office")
	}

	meetup := &store.Meetup{
		Participants: cleaned,
		Type:         meetupType,
		Status:       store.MeetupStatusPending,
		Feedback:     map[string]string{normalizeID(cleaned[0]): store.FeedbackAccepted},
	}
	if err := s.dbStore.CreateMeetup(ctx, meetup); err != nil {
		log.WithField("participants", cleaned).WithError(err).Error("meetup insert failed")
		return nil, fromStore("Failed to create meetup", "Meetup not found", err)
	}
	return meetup, nil
}

// ListForParticipant returns meetups the user takes part in, newest first.
func (s *MeetupService) ListForParticipant(ctx context.Context, userID string) ([]store.Meetup, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, validationError("Missing userId")
	}
	meetups, err := s.dbStore.ListMeetupsByParticipant(ctx, userID)
	if err != nil {
		return nil, fromStore("Failed to fetch meetups", "Meetups not found", err)
	}
	return meetups, nil
}

// Advance applies one lifecycle action for the actor. A missing meetup is
// reported before an unrecognized action. The write is a
// compare-and-swap on the meetup version; a lost race reloads and reapplies
// the action up to maxRetries times.
func (s *MeetupService) Advance(ctx context.Context, req AdvanceRequest) (*store.Meetup, error) {
	req.MeetupID = strings.TrimSpace(req.MeetupID)
	req.ActorID = strings.TrimSpace(req.ActorID)
	if req.MeetupID == "" || req.ActorID == "" || req.Action == "" {
		return nil, validationError("Missing fields")
	}
	if req.Action == ActionFeedback && req.Reaction == "" {
		return nil, validationError("Missing reaction")
	}
	if req.Action == ActionFeedback && req.Reaction != store.FeedbackThumbsUp && req.Reaction != store.FeedbackThumbsDown {
		return nil, validationError("reaction must be 👍 or 👎")
	}

	logger := log.WithFields(log.Fields{
		"meetup_id": req.MeetupID,
		"actor":     req.ActorID,
		"action":    req.Action,
	})

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		current, err := s.dbStore.GetMeetup(ctx, req.MeetupID)
		if err != nil {
			return nil, fromStore("Failed to load meetup", "Meetup not found", err)
		}
		if !req.Action.known() {
			return nil, &Error{Kind: ErrUnknownAction, Msg: "Unknown action"}
		}
		if !current.HasParticipant(req.ActorID) {
			return nil, validationError("actor is not a participant of this meetup")
		}

		if err := applyAction(current, req); err != nil {
			return nil, err
		}

		err = s.dbStore.UpdateMeetup(ctx, current)
		if err == nil {
			return current, nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			logger.WithError(err).Error("meetup update failed")
			return nil, fromStore("Failed to update meetup", "Meetup not found", err)
		}
		logger.WithField("attempt", attempt).Debug("meetup changed concurrently, retrying")
	}

	logger.Warn("meetup update retries exhausted")
	return nil, &Error{
		Kind: ErrConflict,
		Msg:  "Meetup was modified concurrently, please retry",
		Err:  fmt.Errorf("%d attempts: %w", s.maxRetries, store.ErrVersionConflict),
	}
}

// applyAction mutates m in place. Feedback keys are rewritten in lowercase
// so records written with mixed-case keys converge.
func applyAction(m *store.Meetup, req AdvanceRequest) error {
	me := normalizeID(req.ActorID)
	feedback := make(map[string]string, len(m.Feedback)+1)
	for k, v := range m.Feedback {
		feedback[normalizeID(k)] = v
	}

	switch req.Action {
	case ActionAccept:
		if m.Status.Terminal() {
			return validationError(fmt.Sprintf("Meetup is already %s", m.Status))
		}
		feedback[me] = store.FeedbackAccepted
		// An ongoing meetup whose other slot now holds a reaction drops back
		// to pending until both accept again.
		if allAccepted(m.Participants, feedback) {
			m.Status = store.MeetupStatusOngoing
		} else {
			m.Status = store.MeetupStatusPending
		}
	case ActionDecline:
		if m.Status.Terminal() {
			return validationError(fmt.Sprintf("Meetup is already %s", m.Status))
		}
		feedback[me] = store.FeedbackDeclined
		m.Status = store.MeetupStatusDeclined
	case ActionComplete:
		// TODO: restrict to ongoing meetups once product confirms the rule.
		m.Status = store.MeetupStatusCompleted
	case ActionFeedback:
		feedback[me] = req.Reaction
	default:
		return &Error{Kind: ErrUnknownAction, Msg: "Unknown action"}
	}

	m.Feedback = feedback
	return nil
}

func allAccepted(participants []string, feedback map[string]string) bool {
	for _, p := range participants {
		if feedback[normalizeID(p)] != store.FeedbackAccepted {
			return false
		}
	}
	return true
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
