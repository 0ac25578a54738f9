package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/custodia-labs/sitrep-core/internal/core/domain"
	"github.com/custodia-labs/sitrep-core/internal/core/ports/driven"
	"github.com/custodia-labs/sitrep-core/internal/core/ports/driving"
)

// AdvanceRequest names the stage to advance a post into
// @Description Target lifecycle stage
type AdvanceRequest struct {
	Stage domain.LifecycleStage `json:"stage" swaggertype:"string" example:"INITIAL_REVIEW"`
}

// DuplicateRequest marks a node as a duplicate of another
// @Description Duplicate target
type DuplicateRequest struct {
	TargetID string `json:"target_id" example:"0f8fad5b-d9cb-469f-a165-70867728950e"`
}

// ResolveResponse is the terminal node of a dedup chain
// @Description Dedup resolution result
type ResolveResponse struct {
	NodeID     string `json:"node_id"`
	TerminalID string `json:"terminal_id"`
}

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// Posts

// handleIngest godoc
// @Summary      Ingest a record set
// @Description  Builds the immutable tree of a document's extraction record set and its CREATED snapshot. With async=true the record set is queued for a worker instead.
// @Tags         Posts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      driving.IngestRequest  true  "Document key and record set"
// @Param        async    query     bool                   false "Queue the ingest"
// @Success      201      {object}  driving.IngestResult
// @Success      202      {object}  domain.Task
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      409      {object}  ErrorResponse  "Document already ingested"
// @Failure      422      {object}  ErrorResponse  "Invalid tree shape"
// @Router       /posts [post]
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req driving.IngestRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if isAsync(r) {
		if s.taskQueue == nil {
			writeError(w, http.StatusServiceUnavailable, "task queue not configured")
			return
		}
		task, err := ingestTask(req)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		if err := s.taskQueue.Enqueue(r.Context(), task); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, task)
		return
	}

	res, err := s.ingestService.Ingest(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// handleIngestBatch godoc
// @Summary      Queue record sets
// @Description  Queues one ingest task per record set. Either every task is queued or none is.
// @Tags         Posts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      []driving.IngestRequest  true  "Document keys and record sets"
// @Success      202      {array}   domain.Task
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      422      {object}  ErrorResponse  "Missing document key or empty batch"
// @Failure      503      {object}  ErrorResponse  "Task queue not configured"
// @Router       /posts/batch [post]
func (s *Server) handleIngestBatch(w http.ResponseWriter, r *http.Request) {
	if s.taskQueue == nil {
		writeError(w, http.StatusServiceUnavailable, "task queue not configured")
		return
	}
	var reqs []driving.IngestRequest
	if !decodeBody(w, r, &reqs) {
		return
	}
	if len(reqs) == 0 || len(reqs) > maxPageSize {
		s.writeServiceError(w, r, fmt.Errorf("%w: batch must hold between 1 and %d record sets", domain.ErrInvalidInput, maxPageSize))
		return
	}

	tasks := make([]*domain.Task, 0, len(reqs))
	for i, req := range reqs {
		task, err := ingestTask(req)
		if err != nil {
			s.writeServiceError(w, r, fmt.Errorf("record set %d: %w", i, err))
			return
		}
		tasks = append(tasks, task)
	}
	if err := s.taskQueue.EnqueueBatch(r.Context(), tasks); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.logger.Info("ingest batch queued", "tasks", len(tasks))
	writeJSON(w, http.StatusAccepted, tasks)
}

// ingestTask wraps req in an ingest task for the worker
func ingestTask(req driving.IngestRequest) (*domain.Task, error) {
	if req.DocumentID == "" || req.ExtractionRunID == "" {
		return nil, fmt.Errorf("%w: document_id and extraction_run_id are required", domain.ErrInvalidInput)
	}
	recordSet, err := json.Marshal(req.RecordSet)
	if err != nil {
		return nil, err
	}
	return domain.NewIngestDocumentTask(req.DocumentKey, string(recordSet)), nil
}

// handleListPosts godoc
// @Summary      List posts
// @Description  Lists ingested posts, newest first
// @Tags         Posts
// @Produce      json
// @Security     BearerAuth
// @Param        limit   query     int  false  "Page size (default 50, max 500)"
// @Param        offset  query     int  false  "Offset"
// @Success      200     {array}   domain.DomPost
// @Failure      422     {object}  ErrorResponse  "Invalid paging"
// @Router       /posts [get]
func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePage(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	posts, err := s.ingestService.ListPosts(r.Context(), limit, offset)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if posts == nil {
		posts = []*domain.DomPost{}
	}
	writeJSON(w, http.StatusOK, posts)
}

// handleGetPost godoc
// @Summary      Get post
// @Tags         Posts
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Post ID"
// @Success      200  {object}  domain.DomPost
// @Failure      404  {object}  ErrorResponse  "Post not found"
// @Router       /posts/{id} [get]
func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.ingestService.GetPost(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// handleDeletePost godoc
// @Summary      Delete post
// @Description  Removes a post with its tree and every snapshot (admin only)
// @Tags         Posts
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Post ID"
// @Success      200  {object}  StatusResponse
// @Failure      404  {object}  ErrorResponse  "Post not found"
// @Router       /posts/{id} [delete]
func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	if err := s.ingestService.DeletePost(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "deleted"})
}

// handleGetTree godoc
// @Summary      Get structural tree
// @Description  Returns the post's immutable node tree with provenance, children in deterministic order
// @Tags         Posts
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Post ID"
// @Success      200  {object}  domain.TreeNode
// @Failure      404  {object}  ErrorResponse  "Post not found"
// @Router       /posts/{id}/tree [get]
func (s *Server) handleGetTree(w http.ResponseWriter, r *http.Request) {
	tree, err := s.ingestService.GetTree(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tree.Nested())
}

// handleAlterNode godoc
// @Summary      Modify a structural node
// @Description  Nodes are immutable once ingested; this fails with 409, or 404 for an unknown node
// @Tags         Posts
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Node ID"
// @Failure      404  {object}  ErrorResponse  "Node not found"
// @Failure      409  {object}  ErrorResponse  "Structural immutability"
// @Router       /nodes/{id} [patch]
// @Router       /nodes/{id} [delete]
func (s *Server) handleAlterNode(w http.ResponseWriter, r *http.Request) {
	err := s.ingestService.AlterNode(r.Context(), r.PathValue("id"))
	if err == nil {
		err = domain.ErrStructuralImmutability
	}
	s.writeServiceError(w, r, err)
}

// Lifecycle

// handleListSnapshots godoc
// @Summary      List snapshots
// @Description  Returns the post's snapshots ordered by stage
// @Tags         Lifecycle
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Post ID"
// @Success      200  {array}   domain.DomSnapshot
// @Failure      404  {object}  ErrorResponse  "Post not found"
// @Router       /posts/{id}/snapshots [get]
func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	snaps, err := s.lifecycleService.ListSnapshots(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snaps)
}

// handleGetSnapshotAtStage godoc
// @Summary      Get snapshot at stage
// @Description  Returns the post's snapshot at a stage name or ordinal, or its current snapshot for "current"
// @Tags         Lifecycle
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      string  true  "Post ID"
// @Param        stage  path      string  true  "Stage name, ordinal or current"
// @Success      200    {object}  domain.DomSnapshot
// @Failure      404    {object}  ErrorResponse  "Snapshot not found"
// @Failure      422    {object}  ErrorResponse  "Unknown stage"
// @Router       /posts/{id}/snapshots/{stage} [get]
func (s *Server) handleGetSnapshotAtStage(w http.ResponseWriter, r *http.Request) {
	postID := r.PathValue("id")
	raw := r.PathValue("stage")

	var (
		snap *domain.DomSnapshot
		err  error
	)
	if strings.EqualFold(raw, "current") {
		snap, err = s.lifecycleService.Current(r.Context(), postID)
	} else {
		var stage domain.LifecycleStage
		stage, err = domain.ParseLifecycleStage(raw)
		if err == nil {
			snap, err = s.lifecycleService.GetSnapshot(r.Context(), postID, stage)
		}
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleAdvance godoc
// @Summary      Advance lifecycle
// @Description  Creates the snapshot for the stage directly after the current one, cloning the current overlay forward. Only admins and auditors may advance into AUDIT.
// @Tags         Lifecycle
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string          true  "Post ID"
// @Param        request  body      AdvanceRequest  true  "Target stage"
// @Success      201      {object}  domain.DomSnapshot
// @Failure      403      {object}  ErrorResponse  "Role may not advance into stage"
// @Failure      409      {object}  ErrorResponse  "Out of order advance or duplicate stage"
// @Failure      423      {object}  ErrorResponse  "Advance already in progress"
// @Router       /posts/{id}/advance [post]
func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	var req AdvanceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !req.Stage.Valid() {
		s.writeServiceError(w, r, fmt.Errorf("%w: stage is required", domain.ErrInvalidInput))
		return
	}

	authCtx := GetAuthContext(r.Context())
	if authCtx == nil || !domain.CanAdvanceTo(authCtx.Role, req.Stage) {
		writeError(w, http.StatusForbidden, fmt.Sprintf("role may not advance into %s", req.Stage))
		return
	}

	snap, err := s.lifecycleService.Advance(r.Context(), r.PathValue("id"), req.Stage)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.logger.Info("post advanced",
		"post_id", snap.PostID,
		"stage", snap.Stage.String(),
		"user_id", authCtx.UserID)
	writeJSON(w, http.StatusCreated, snap)
}

// Snapshots and review overlay

// handleGetSnapshot godoc
// @Summary      Get snapshot
// @Tags         Snapshots
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Snapshot ID"
// @Success      200  {object}  domain.DomSnapshot
// @Failure      404  {object}  ErrorResponse  "Snapshot not found"
// @Router       /snapshots/{id} [get]
func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.lifecycleService.GetSnapshotByID(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleGetSnapshotTree godoc
// @Summary      Get snapshot tree
// @Description  Returns the structural tree joined with the snapshot's state, context, actors, candidates and eligibility
// @Tags         Snapshots
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Snapshot ID"
// @Success      200  {object}  domain.SnapshotTree
// @Failure      404  {object}  ErrorResponse  "Snapshot not found"
// @Router       /snapshots/{id}/tree [get]
func (s *Server) handleGetSnapshotTree(w http.ResponseWriter, r *http.Request) {
	tree, err := s.reviewService.GetSnapshotTree(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

// handleUpdateNodeState godoc
// @Summary      Update node state
// @Description  Patches resolution and selection flags of a node in the current snapshot
// @Tags         Snapshots
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                 true  "Snapshot ID"
// @Param        node     path      string                 true  "Node ID"
// @Param        request  body      domain.NodeStatePatch  true  "State patch"
// @Success      200      {object}  domain.NodeState
// @Failure      404      {object}  ErrorResponse  "Node not found"
// @Failure      422      {object}  ErrorResponse  "Invalid patch"
// @Failure      423      {object}  ErrorResponse  "Snapshot is not current"
// @Router       /snapshots/{id}/nodes/{node} [patch]
func (s *Server) handleUpdateNodeState(w http.ResponseWriter, r *http.Request) {
	var patch domain.NodeStatePatch
	if !decodeBody(w, r, &patch) {
		return
	}

	state, err := s.reviewService.UpdateNodeState(r.Context(), r.PathValue("id"), r.PathValue("node"), patch)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleSetContext godoc
// @Summary      Set node context
// @Description  Upserts the (node, kind) context annotation in the current snapshot
// @Tags         Snapshots
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                  true  "Snapshot ID"
// @Param        node     path      string                  true  "Node ID"
// @Param        request  body      driving.ContextRequest  true  "Context"
// @Success      200      {object}  domain.NodeContext
// @Failure      422      {object}  ErrorResponse  "Invalid context kind"
// @Failure      423      {object}  ErrorResponse  "Snapshot is not current"
// @Router       /snapshots/{id}/nodes/{node}/context [put]
func (s *Server) handleSetContext(w http.ResponseWriter, r *http.Request) {
	var req driving.ContextRequest
	if !decodeBody(w, r, &req) {
		return
	}

	c, err := s.reviewService.SetContext(r.Context(), r.PathValue("id"), r.PathValue("node"), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// handleSetActor godoc
// @Summary      Set event actor
// @Description  Upserts an actor of an EVENT node in the current snapshot
// @Tags         Snapshots
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                true  "Snapshot ID"
// @Param        node     path      string                true  "Event node ID"
// @Param        request  body      driving.ActorRequest  true  "Actor"
// @Success      200      {object}  domain.Actor
// @Failure      422      {object}  ErrorResponse  "Node is not an event"
// @Failure      423      {object}  ErrorResponse  "Snapshot is not current"
// @Router       /snapshots/{id}/nodes/{node}/actors [put]
func (s *Server) handleSetActor(w http.ResponseWriter, r *http.Request) {
	var req driving.ActorRequest
	if !decodeBody(w, r, &req) {
		return
	}

	a, err := s.reviewService.SetActor(r.Context(), r.PathValue("id"), r.PathValue("node"), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// handleSetCandidate godoc
// @Summary      Select location candidate
// @Description  Sets the selection flags of a location candidate and mirrors them onto the node state
// @Tags         Snapshots
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                             true  "Snapshot ID"
// @Param        node     path      string                             true  "Candidate node ID"
// @Param        request  body      driving.CandidateSelectionRequest  true  "Selection"
// @Success      200      {object}  domain.LocationCandidate
// @Failure      404      {object}  ErrorResponse  "Candidate not found"
// @Failure      423      {object}  ErrorResponse  "Snapshot is not current"
// @Router       /snapshots/{id}/candidates/{node} [put]
func (s *Server) handleSetCandidate(w http.ResponseWriter, r *http.Request) {
	var req driving.CandidateSelectionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	c, err := s.reviewService.SetLocationCandidateSelection(r.Context(), r.PathValue("id"), r.PathValue("node"), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// handleMarkDuplicate godoc
// @Summary      Mark duplicate
// @Description  Marks a node as a duplicate of a same-type node of the same post
// @Tags         Dedup
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string            true  "Snapshot ID"
// @Param        node     path      string            true  "Node ID"
// @Param        request  body      DuplicateRequest  true  "Duplicate target"
// @Success      200      {object}  domain.NodeState
// @Failure      422      {object}  ErrorResponse  "Invalid dedup or cycle"
// @Failure      423      {object}  ErrorResponse  "Snapshot is not current"
// @Router       /snapshots/{id}/nodes/{node}/duplicate [post]
func (s *Server) handleMarkDuplicate(w http.ResponseWriter, r *http.Request) {
	var req DuplicateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	state, err := s.reviewService.MarkDuplicate(r.Context(), r.PathValue("id"), r.PathValue("node"), req.TargetID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleClearDuplicate godoc
// @Summary      Clear duplicate
// @Tags         Dedup
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string  true  "Snapshot ID"
// @Param        node  path      string  true  "Node ID"
// @Success      200   {object}  domain.NodeState
// @Failure      423   {object}  ErrorResponse  "Snapshot is not current"
// @Router       /snapshots/{id}/nodes/{node}/duplicate [delete]
func (s *Server) handleClearDuplicate(w http.ResponseWriter, r *http.Request) {
	state, err := s.reviewService.ClearDuplicate(r.Context(), r.PathValue("id"), r.PathValue("node"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleResolve godoc
// @Summary      Resolve dedup chain
// @Description  Follows a node's duplicate markings to the terminal node
// @Tags         Dedup
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string  true  "Snapshot ID"
// @Param        node  path      string  true  "Node ID"
// @Success      200   {object}  ResolveResponse
// @Failure      404   {object}  ErrorResponse  "Node not found"
// @Failure      422   {object}  ErrorResponse  "Dedup cycle"
// @Router       /snapshots/{id}/nodes/{node}/resolve [get]
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	nodeID := r.PathValue("node")
	terminal, err := s.reviewService.Resolve(r.Context(), r.PathValue("id"), nodeID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ResolveResponse{NodeID: nodeID, TerminalID: terminal})
}

// handleSuggestDuplicates godoc
// @Summary      Suggest duplicates
// @Description  Marks sibling nodes with matching text and context as duplicates
// @Tags         Dedup
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Snapshot ID"
// @Success      200  {array}   domain.DedupSuggestion
// @Failure      423  {object}  ErrorResponse  "Snapshot is not current"
// @Router       /snapshots/{id}/dedup/suggest [post]
func (s *Server) handleSuggestDuplicates(w http.ResponseWriter, r *http.Request) {
	suggestions, err := s.reviewService.SuggestDuplicates(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if suggestions == nil {
		suggestions = []domain.DedupSuggestion{}
	}
	writeJSON(w, http.StatusOK, suggestions)
}

// handleRederiveContext godoc
// @Summary      Re-derive context
// @Description  Rewrites every non-overridden context annotation from the post's ingest hints
// @Tags         Snapshots
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Snapshot ID"
// @Success      200  {array}   domain.NodeContext
// @Failure      423  {object}  ErrorResponse  "Snapshot is not current"
// @Router       /snapshots/{id}/context/rederive [post]
func (s *Server) handleRederiveContext(w http.ResponseWriter, r *http.Request) {
	contexts, err := s.reviewService.RederiveContext(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if contexts == nil {
		contexts = []*domain.NodeContext{}
	}
	writeJSON(w, http.StatusOK, contexts)
}

// Eligibility

// handleRecompute godoc
// @Summary      Recompute eligibility
// @Description  Replaces the snapshot's commit eligibility table. With async=true the recompute is queued for a worker.
// @Tags         Eligibility
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      string  true   "Snapshot ID"
// @Param        async  query     bool    false  "Queue the recompute"
// @Success      200    {array}   domain.CommitEligibility
// @Success      202    {object}  domain.Task
// @Failure      404    {object}  ErrorResponse  "Snapshot not found"
// @Failure      423    {object}  ErrorResponse  "Snapshot is not current"
// @Router       /snapshots/{id}/recompute [post]
func (s *Server) handleRecompute(w http.ResponseWriter, r *http.Request) {
	snapshotID := r.PathValue("id")

	if isAsync(r) {
		if s.taskQueue == nil {
			writeError(w, http.StatusServiceUnavailable, "task queue not configured")
			return
		}
		snap, err := s.lifecycleService.GetSnapshotByID(r.Context(), snapshotID)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		task := domain.NewRecomputeSnapshotTask(snap.PostID, snap.ID)
		if err := s.taskQueue.Enqueue(r.Context(), task); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, task)
		return
	}

	rows, err := s.eligibilityService.Recompute(r.Context(), snapshotID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// handleGetEligibility godoc
// @Summary      Get eligibility
// @Description  Returns the snapshot's commit eligibility table ordered by node
// @Tags         Eligibility
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Snapshot ID"
// @Success      200  {array}   domain.CommitEligibility
// @Failure      404  {object}  ErrorResponse  "Snapshot not found"
// @Router       /snapshots/{id}/eligibility [get]
func (s *Server) handleGetEligibility(w http.ResponseWriter, r *http.Request) {
	rows, err := s.eligibilityService.GetEligibility(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// Tasks

// handleGetTask godoc
// @Summary      Get task
// @Description  Returns the status of a queued ingest or recompute
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  domain.Task
// @Failure      404  {object}  ErrorResponse  "Task not found"
// @Router       /tasks/{id} [get]
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	if s.taskQueue == nil {
		writeError(w, http.StatusServiceUnavailable, "task queue not configured")
		return
	}
	task, err := s.taskQueue.GetTask(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if task == nil {
		s.writeServiceError(w, r, domain.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// handleListTasks godoc
// @Summary      List tasks
// @Description  Lists queued, running and finished tasks, newest first
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        post_id  query     string  false  "Post ID"
// @Param        status   query     string  false  "pending, processing, completed or failed"
// @Param        type     query     string  false  "ingest_document or recompute_snapshot"
// @Param        limit    query     int     false  "Page size (default 50, max 500)"
// @Param        offset   query     int     false  "Offset"
// @Success      200      {array}   domain.Task
// @Failure      422      {object}  ErrorResponse  "Invalid filter"
// @Router       /tasks [get]
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	if s.taskQueue == nil {
		writeError(w, http.StatusServiceUnavailable, "task queue not configured")
		return
	}
	limit, offset, err := parsePage(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	q := r.URL.Query()
	filter := driven.TaskFilter{
		PostID: q.Get("post_id"),
		Status: domain.TaskStatus(q.Get("status")),
		Type:   domain.TaskType(q.Get("type")),
		Limit:  limit,
		Offset: offset,
	}
	switch filter.Status {
	case "", domain.TaskStatusPending, domain.TaskStatusProcessing, domain.TaskStatusCompleted, domain.TaskStatusFailed:
	default:
		s.writeServiceError(w, r, fmt.Errorf("%w: unknown task status %q", domain.ErrInvalidInput, filter.Status))
		return
	}
	switch filter.Type {
	case "", domain.TaskTypeIngestDocument, domain.TaskTypeRecomputeSnapshot:
	default:
		s.writeServiceError(w, r, fmt.Errorf("%w: unknown task type %q", domain.ErrInvalidInput, filter.Type))
		return
	}

	tasks, err := s.taskQueue.ListTasks(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []*domain.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// handleCancelTask godoc
// @Summary      Cancel task
// @Description  Cancels a task that no worker has picked up yet
// @Tags         Tasks
// @Security     BearerAuth
// @Param        id   path  string  true  "Task ID"
// @Success      204  "Task cancelled"
// @Failure      404  {object}  ErrorResponse  "Task not found"
// @Failure      409  {object}  ErrorResponse  "Task is not pending"
// @Router       /tasks/{id} [delete]
func (s *Server) handleCancelTask(w http.ResponseWriter, r *http.Request) {
	if s.taskQueue == nil {
		writeError(w, http.StatusServiceUnavailable, "task queue not configured")
		return
	}
	if err := s.taskQueue.CancelTask(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.logger.Info("task cancelled", "task_id", r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// handleQueueStats godoc
// @Summary      Queue statistics
// @Description  Returns task counts per status and the age of the oldest pending task
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  driven.QueueStats
// @Failure      403  {object}  ErrorResponse  "Admin only"
// @Router       /tasks/stats [get]
func (s *Server) handleQueueStats(w http.ResponseWriter, r *http.Request) {
	if s.taskQueue == nil {
		writeError(w, http.StatusServiceUnavailable, "task queue not configured")
		return
	}
	stats, err := s.taskQueue.Stats(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func isAsync(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get("async"))
	return v
}

// parsePage reads limit and offset query parameters
func parsePage(r *http.Request) (limit, offset int, err error) {
	limit, offset = defaultPageSize, 0
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 1 || limit > maxPageSize {
			return 0, 0, fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrInvalidInput, maxPageSize)
		}
	}
	if v := q.Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("%w: offset must not be negative", domain.ErrInvalidInput)
		}
	}
	return limit, offset, nil
}
