package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/dukerupert/taskblast/internal/auth"
	"github.com/dukerupert/taskblast/internal/backend"
	"github.com/dukerupert/taskblast/internal/model"
	"github.com/dukerupert/taskblast/internal/pin"
	"github.com/dukerupert/taskblast/internal/profile"
	"github.com/dukerupert/taskblast/internal/reward"
	"github.com/dukerupert/taskblast/internal/tasklist"
)

type TaskHandler struct {
	client   *backend.Client
	settler  *reward.Settler
	resolver *profile.Resolver
	allowPIN func(*http.Request) bool
	logger   *slog.Logger
}

// NewTaskHandler returns a task handler. allowPIN is asked before every
// manager PIN comparison and may be nil.
func NewTaskHandler(client *backend.Client, settler *reward.Settler, allowPIN func(*http.Request) bool, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		client:   client,
		settler:  settler,
		resolver: profile.NewResolver(nil, client),
		allowPIN: allowPIN,
		logger:   logger,
	}
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := resolveOwner(w, r, h.resolver)
	if !ok {
		return
	}
	tasks, err := h.client.Tasks(r.Context(), owner)
	if err != nil {
		writeStoreError(w, h.logger, "failed to list tasks", err)
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	if r.URL.Query().Get("archived") != "" {
		want := r.URL.Query().Get("archived") == "true"
		filtered := tasks[:0]
		for _, t := range tasks {
			if t.Archived == want {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner, ok := resolveOwner(w, r, h.resolver)
	if !ok {
		return
	}
	id, _ := parseIDParam(r)
	task, err := h.client.Task(r.Context(), owner, id)
	if err != nil {
		writeStoreError(w, h.logger, "failed to get task", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

type createRequest struct {
	model.TaskInput
	PIN string `json:"pin"`
}

// Create adds a task. Adding is an edit-mode action, so managed accounts must
// send the manager PIN.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := resolveOwner(w, r, h.resolver)
	if !ok {
		return
	}
	var req createRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := tasklist.Normalize(req.TaskInput)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !h.managerApproved(w, r, req.PIN) {
		return
	}

	task, err := h.client.CreateTask(r.Context(), owner, t)
	if err != nil {
		writeStoreError(w, h.logger, "failed to create task", err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

type patchRequest struct {
	model.TaskPatch
	// Override completes a task whose cycles are not met. Managed accounts
	// must include the manager PIN.
	Override bool   `json:"override"`
	PIN      string `json:"pin"`
}

// editsFields reports whether the patch touches fields only edit mode may
// change.
func (p patchRequest) editsFields() bool {
	return p.Name != nil || p.Description != nil || p.Reward != nil ||
		p.AllowMinimization != nil || p.WorkTime != nil || p.PlayTime != nil ||
		p.Cycles != nil
}

// Update applies a partial update. Archive state is changed only through the
// archive and unarchive endpoints. Completed cycles can only be reset to zero;
// progress is recorded through IncrementCycles. Editing task fields, or
// completing with override, needs the manager PIN on managed accounts.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	owner, ok := resolveOwner(w, r, h.resolver)
	if !ok {
		return
	}
	id, _ := parseIDParam(r)

	var req patchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Archived != nil {
		writeError(w, http.StatusBadRequest, "use the archive endpoints to change archived")
		return
	}
	if err := validatePatch(req.TaskPatch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Empty() {
		writeError(w, http.StatusBadRequest, "nothing to update")
		return
	}

	existing, err := h.client.Task(r.Context(), owner, id)
	if err != nil {
		writeStoreError(w, h.logger, "failed to get task", err)
		return
	}
	needPIN := req.editsFields()
	if req.Completed != nil && *req.Completed && !existing.Completed && !existing.CyclesMet() {
		if !req.Override {
			writeError(w, http.StatusConflict, "task cycles not complete")
			return
		}
		needPIN = true
	}
	if needPIN && !h.managerApproved(w, r, req.PIN) {
		return
	}

	task, err := h.client.UpdateTask(r.Context(), owner, id, req.TaskPatch)
	if err != nil {
		writeStoreError(w, h.logger, "failed to update task", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Delete removes a task without reward. Managed accounts must send the
// manager PIN.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := resolveOwner(w, r, h.resolver)
	if !ok {
		return
	}
	id, _ := parseIDParam(r)
	candidate, ok := decodePIN(w, r)
	if !ok {
		return
	}
	if _, err := h.client.Task(r.Context(), owner, id); err != nil {
		writeStoreError(w, h.logger, "failed to get task", err)
		return
	}
	if !h.managerApproved(w, r, candidate) {
		return
	}
	if err := h.client.DeleteTask(r.Context(), owner, id); err != nil {
		writeStoreError(w, h.logger, "failed to delete task", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Archive archives the task and credits its reward in one transaction.
// Managed accounts must send the manager PIN.
func (h *TaskHandler) Archive(w http.ResponseWriter, r *http.Request) {
	owner, ok := resolveOwner(w, r, h.resolver)
	if !ok {
		return
	}
	id, _ := parseIDParam(r)
	candidate, ok := decodePIN(w, r)
	if !ok {
		return
	}
	existing, err := h.client.Task(r.Context(), owner, id)
	if err != nil {
		writeStoreError(w, h.logger, "failed to get task", err)
		return
	}
	if existing.Archived {
		writeError(w, http.StatusConflict, "task already archived")
		return
	}
	if !h.managerApproved(w, r, candidate) {
		return
	}
	st, err := h.settler.ArchiveTask(r.Context(), owner, id)
	if err != nil {
		writeStoreError(w, h.logger, "failed to archive task", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Unarchive restores the task with progress reset. Managed accounts must send
// the manager PIN.
func (h *TaskHandler) Unarchive(w http.ResponseWriter, r *http.Request) {
	owner, ok := resolveOwner(w, r, h.resolver)
	if !ok {
		return
	}
	id, _ := parseIDParam(r)
	candidate, ok := decodePIN(w, r)
	if !ok {
		return
	}

	existing, err := h.client.Task(r.Context(), owner, id)
	if err != nil {
		writeStoreError(w, h.logger, "failed to get task", err)
		return
	}
	if !existing.Archived {
		writeError(w, http.StatusConflict, "task is not archived")
		return
	}
	if !h.managerApproved(w, r, candidate) {
		return
	}

	archived, completed, cycles := false, false, 0
	task, err := h.client.UpdateTask(r.Context(), owner, id, model.TaskPatch{
		Archived:        &archived,
		Completed:       &completed,
		CompletedCycles: &cycles,
	})
	if err != nil {
		writeStoreError(w, h.logger, "failed to unarchive task", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// IncrementCycles records one finished work period from the Pomodoro flow.
func (h *TaskHandler) IncrementCycles(w http.ResponseWriter, r *http.Request) {
	owner, ok := resolveOwner(w, r, h.resolver)
	if !ok {
		return
	}
	id, _ := parseIDParam(r)
	task, err := h.client.IncrementCycles(r.Context(), owner, id)
	if err != nil {
		writeStoreError(w, h.logger, "failed to increment cycles", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// managerApproved passes independent accounts, checks the PIN for managed
// ones and refuses accounts whose type cannot be read.
func (h *TaskHandler) managerApproved(w http.ResponseWriter, r *http.Request, candidate string) bool {
	accountID := auth.AccountID(r.Context())
	acct, err := h.client.Account(r.Context(), accountID)
	if err != nil {
		h.logger.Error("load account for pin check", "account", accountID, "error", err)
		writeError(w, http.StatusForbidden, "account type unknown")
		return false
	}
	switch acct.AccountType {
	case model.AccountIndependent:
		return true
	case model.AccountManaged:
		if h.allowPIN != nil && !h.allowPIN(r) {
			writeError(w, http.StatusTooManyRequests, "too many attempts")
			return false
		}
		hash, err := h.client.PINHash(r.Context(), accountID)
		if err != nil {
			writeStoreError(w, h.logger, "failed to get PIN", err)
			return false
		}
		if !pin.NewHashVerifier(hash).Verify(candidate) {
			writeError(w, http.StatusUnauthorized, pin.IncorrectMessage)
			return false
		}
		return true
	default:
		writeError(w, http.StatusForbidden, "account type unknown")
		return false
	}
}

// decodePIN reads an optional {"pin"} body. An empty body yields "".
func decodePIN(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req struct {
		PIN string `json:"pin"`
	}
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return "", false
	}
	return req.PIN, true
}

func validatePatch(p model.TaskPatch) error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return fmt.Errorf("%w: name is required", tasklist.ErrValidation)
	}
	if p.Description != nil && utf8.RuneCountInString(*p.Description) > model.MaxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", tasklist.ErrValidation, model.MaxDescriptionLength)
	}
	if p.Reward != nil && *p.Reward < 0 {
		return fmt.Errorf("%w: reward must not be negative", tasklist.ErrValidation)
	}
	if p.WorkTime != nil && *p.WorkTime <= 0 {
		return fmt.Errorf("%w: work time must be positive", tasklist.ErrValidation)
	}
	if p.PlayTime != nil && *p.PlayTime <= 0 {
		return fmt.Errorf("%w: play time must be positive", tasklist.ErrValidation)
	}
	if p.Cycles != nil && *p.Cycles != model.InfiniteCycles && *p.Cycles < 1 {
		return fmt.Errorf("%w: cycles must be -1 or at least 1", tasklist.ErrValidation)
	}
	if p.CompletedCycles != nil && *p.CompletedCycles != 0 {
		return fmt.Errorf("%w: completed cycles can only be reset to 0", tasklist.ErrValidation)
	}
	return nil
}
