package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"geomeet.io/geo-meet/internal/auth"
	"geomeet.io/geo-meet/internal/core"
	"geomeet.io/geo-meet/internal/store"
	"geomeet.io/geo-meet/internal/utils"
)

var (
	errAuthRequired  = errors.New("authentication required")
	errActorMismatch = errors.New("authenticated user does not match request")
)

type APIHandler struct {
	profiles *core.ProfileService
	matcher  *core.MatchService
	meetups  *core.MeetupService
	search   *core.SearchService
	messages *core.MessageService
	auth     *auth.Authenticator
}

func NewAPIHandler(
	profiles *core.ProfileService,
	matcher *core.MatchService,
	meetups *core.MeetupService,
	search *core.SearchService,
	messages *core.MessageService,
	authenticator *auth.Authenticator,
) *APIHandler {
	return &APIHandler{
		profiles: profiles,
		matcher:  matcher,
		meetups:  meetups,
		search:   search,
		messages: messages,
		auth:     authenticator,
	}
}

// ActorMiddleware attaches the request's actor to its context. Anonymous
// requests pass through; handlers that mutate on behalf of a user decide
// whether they need one.
func (h *APIHandler) ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := h.auth.Resolve(r)
		if err != nil {
			log.WithError(err).Debug("rejecting request with invalid credentials")
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		if actor != "" {
			r = r.WithContext(auth.WithActor(r.Context(), actor))
		}
		next.ServeHTTP(w, r)
	})
}

// actorFor reconciles an identifier claimed in the request with the
// authenticated actor. In token mode the token wins and a different claim
// is rejected; in header mode the claim is used when present.
func (h *APIHandler) actorFor(r *http.Request, claimed string) (string, error) {
	claimed = strings.TrimSpace(claimed)
	actor, ok := auth.ActorFromContext(r.Context())
	if !h.auth.RequiresToken() {
		if claimed != "" {
			return claimed, nil
		}
		return actor, nil
	}
	if !ok {
		return "", errAuthRequired
	}
	if claimed != "" && !strings.EqualFold(claimed, actor) {
		return "", errActorMismatch
	}
	return actor, nil
}

func (h *APIHandler) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.Get(r.Context(), r.URL.Query().Get("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *APIHandler) UpsertProfileHandler(w http.ResponseWriter, r *http.Request) {
	var req store.Profile
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if h.auth.RequiresToken() {
		actor, err := h.actorFor(r, req.ID)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		req.ID = actor
	}

	rows, err := h.profiles.Upsert(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

type NearbyProfile struct {
	store.Profile
	DistanceMeters *float64 `json:"distance_meters,omitempty"`
}

func (h *APIHandler) MatchHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(q.Get("lng"), 64)
	if errLat != nil || errLng != nil {
		writeError(w, http.StatusBadRequest, "Invalid lat or lng")
		return
	}
	origin := utils.Coordinate{Lat: lat, Lng: lng}
	actor, _ := auth.ActorFromContext(r.Context())

	nearby, err := h.matcher.FindNearby(r.Context(), core.MatchQuery{
		Origin:       origin,
		Availability: store.Availability(q.Get("type")),
		Industry:     q.Get("industry"),
		ExcludeID:    actor,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if q.Get("sort") != "nearest" {
		writeJSON(w, http.StatusOK, nearby)
		return
	}
	ranked := utils.SortByNearest(&origin, nearby)
	resp := make([]NearbyProfile, len(ranked))
	for i, rp := range ranked {
		resp[i] = NearbyProfile{Profile: rp.Item, DistanceMeters: rp.DistanceMeters}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *APIHandler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.search.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (h *APIHandler) ListMeetupsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := h.actorFor(r, r.URL.Query().Get("userId"))
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	meetups, err := h.meetups.ListForParticipant(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meetups)
}

type CreateMeetupRequest struct {
	Participants []string         `json:"participants"`
	Type         store.MeetupType `json:"type"`
}

func (h *APIHandler) CreateMeetupHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateMeetupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if h.auth.RequiresToken() {
		actor, err := h.actorFor(r, "")
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		m := store.Meetup{Participants: req.Participants}
		if !m.HasParticipant(actor) {
			writeError(w, http.StatusUnauthorized, errActorMismatch.Error())
			return
		}
	}

	meetup, err := h.meetups.Propose(r.Context(), req.Participants, req.Type)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meetup)
}

type AdvanceMeetupRequest struct {
	MeetupID string `json:"meetupId"`
	UserID   string `json:"userId"`
	Action   string `json:"action"`
	Reaction string `json:"reaction,omitempty"`
}

func (h *APIHandler) AdvanceMeetupHandler(w http.ResponseWriter, r *http.Request) {
	var req AdvanceMeetupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	actor, err := h.actorFor(r, req.UserID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	_, err = h.meetups.Advance(r.Context(), core.AdvanceRequest{
		MeetupID: req.MeetupID,
		ActorID:  actor,
		Action:   core.Action(req.Action),
		Reaction: req.Reaction,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type SendMessageRequest struct {
	Message string `json:"message"`
}

type SendMessageResponse struct {
	Success bool           `json:"success"`
	Data    *store.Message `json:"data"`
}

func (h *APIHandler) SendMessageHandler(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	sender, err := h.actorFor(r, "")
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	msg, err := h.messages.Send(r.Context(), sender, req.Message)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SendMessageResponse{Success: true, Data: msg})
}

func (h *APIHandler) ListMessagesHandler(w http.ResponseWriter, r *http.Request) {
	sender, err := h.actorFor(r, r.URL.Query().Get("userId"))
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	msgs, err := h.messages.ListBySender(r.Context(), sender)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}
