package handler

import (
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"coachai/internal/gateway/entity"
	"coachai/internal/gateway/service"
	"coachai/internal/gateway/service/users"
)

const usersModule = "CoachAI User Management"

// UsersHandler serves the coaching profiles under /coach-ai-users.
type UsersHandler struct {
	svc *users.Service
	now func() time.Time
}

func NewUsersHandler(svc *users.Service) *UsersHandler {
	return &UsersHandler{svc: svc, now: time.Now}
}

func (h *UsersHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in users.ProfileInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, "register user", err)
		return
	}
	log.Printf("handler: register user username=%s", in.Username)
	u, err := h.svc.Register(r.Context(), in)
	if err != nil {
		writeError(w, "register user", err)
		return
	}
	writeSuccess(w, "user registered", u)
}

func (h *UsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, "query user", err)
		return
	}
	u, err := h.svc.Profile(r.Context(), id)
	if err != nil {
		writeError(w, "query user", err)
		return
	}
	writeSuccess(w, "query succeeded", u)
}

func (h *UsersHandler) HandleByUsername(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.ProfileByUsername(r.Context(), r.PathValue("username"))
	if err != nil {
		writeError(w, "query user", err)
		return
	}
	writeSuccess(w, "query succeeded", u)
}

func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Profiles(r.Context())
	if err != nil {
		writeError(w, "query users", err)
		return
	}
	writeSuccess(w, "query succeeded", list)
}

func (h *UsersHandler) HandleAgeRange(w http.ResponseWriter, r *http.Request) {
	minAge, err := intQuery(r, "minAge")
	if err != nil {
		writeError(w, "query users by age", err)
		return
	}
	maxAge, err := intQuery(r, "maxAge")
	if err != nil {
		writeError(w, "query users by age", err)
		return
	}
	list, err := h.svc.ProfilesByAge(r.Context(), minAge, maxAge)
	if err != nil {
		writeError(w, "query users by age", err)
		return
	}
	writeSuccess(w, "query succeeded", list)
}

func (h *UsersHandler) HandleBySport(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ProfilesBySport(r.Context(), r.PathValue("sport"))
	if err != nil {
		writeError(w, "query users by sport", err)
		return
	}
	writeSuccess(w, "query succeeded", list)
}

func (h *UsersHandler) HandleByGender(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ProfilesByGender(r.Context(), r.PathValue("gender"))
	if err != nil {
		writeError(w, "query users by gender", err)
		return
	}
	writeSuccess(w, "query succeeded", list)
}

func (h *UsersHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.SearchProfiles(r.Context(), queryParam(r, "username"))
	if err != nil {
		writeError(w, "search users", err)
		return
	}
	writeSuccess(w, "query succeeded", list)
}

func (h *UsersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, "update user", err)
		return
	}
	var in users.ProfileInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, "update user", err)
		return
	}
	u, err := h.svc.UpdateProfile(r.Context(), id, in)
	if err != nil {
		writeError(w, "update user", err)
		return
	}
	writeSuccess(w, "user updated", u)
}

func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, "delete user", err)
		return
	}
	if err := h.svc.DeleteProfile(r.Context(), id); err != nil {
		writeError(w, "delete user", err)
		return
	}
	writeSuccess(w, "user deleted", nil)
}

func (h *UsersHandler) HandleSports(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, "query succeeded", entity.SportLabels())
}

func (h *UsersHandler) HandleGenders(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, "query succeeded", entity.GenderLabels())
}

func (h *UsersHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "UP",
		"service":   serviceName,
		"module":    usersModule,
		"timestamp": h.now().Format(time.RFC3339),
	})
}

// AccountsHandler serves the plain login accounts under /users.
type AccountsHandler struct {
	svc *users.Service
	now func() time.Time
}

func NewAccountsHandler(svc *users.Service) *AccountsHandler {
	return &AccountsHandler{svc: svc, now: time.Now}
}

func (h *AccountsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in users.AccountInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, "create account", err)
		return
	}
	log.Printf("handler: create account username=%s", in.Username)
	a, err := h.svc.CreateAccount(r.Context(), in)
	if err != nil {
		writeError(w, "create account", err)
		return
	}
	writeSuccess(w, "account created", a)
}

func (h *AccountsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, "query account", err)
		return
	}
	a, err := h.svc.Account(r.Context(), id)
	if err != nil {
		writeError(w, "query account", err)
		return
	}
	writeSuccess(w, "query succeeded", a)
}

func (h *AccountsHandler) HandleByUsername(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.AccountByUsername(r.Context(), r.PathValue("username"))
	if err != nil {
		writeError(w, "query account", err)
		return
	}
	writeSuccess(w, "query succeeded", a)
}

func (h *AccountsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Accounts(r.Context())
	if err != nil {
		writeError(w, "query accounts", err)
		return
	}
	writeSuccess(w, "query succeeded", list)
}

func (h *AccountsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, "update account", err)
		return
	}
	var in users.AccountInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, "update account", err)
		return
	}
	a, err := h.svc.UpdateAccount(r.Context(), id, in)
	if err != nil {
		writeError(w, "update account", err)
		return
	}
	writeSuccess(w, "account updated", a)
}

func (h *AccountsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, "delete account", err)
		return
	}
	if err := h.svc.DeleteAccount(r.Context(), id); err != nil {
		writeError(w, "delete account", err)
		return
	}
	writeSuccess(w, "account deleted", nil)
}

func (h *AccountsHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "UP",
		"service":   serviceName,
		"timestamp": h.now().Format(time.RFC3339),
	})
}

func (h *AccountsHandler) HandleHello(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Hello, Coach AI Core Service!",
		"status":    "success",
		"timestamp": h.now().Format(time.RFC3339),
	})
}

func pathID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.PathValue("id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, service.Invalid("id", "%q is not a valid id", raw)
	}
	return id, nil
}

func intQuery(r *http.Request, name string) (int, error) {
	raw := queryParam(r, name)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, service.Invalid(name, "%q is not a number", raw)
	}
	return n, nil
}
