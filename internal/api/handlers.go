package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/helmcloud/k8s-clusterview/internal/kube"
	"github.com/helmcloud/k8s-clusterview/internal/pdfgen"
	"github.com/helmcloud/k8s-clusterview/internal/snapshot"
	"github.com/helmcloud/k8s-clusterview/internal/storage"
)

// SnapshotCache is the cache the request surface reads through.
type SnapshotCache interface {
	Get(ctx context.Context, namespace string, forceRefresh bool) (snapshot.ClusterSnapshot, error)
	Refresh(ctx context.Context, cluster string) (*snapshot.ClusterSnapshot, error)
	LastFetch() time.Time
}

// Archive gives read access to stored snapshots.
type Archive interface {
	ListSnapshots(ctx context.Context, cluster string, limit int) ([]storage.Snapshot, error)
	GetSnapshot(ctx context.Context, id int64) (*snapshot.ClusterSnapshot, error)
}

type Handler struct {
	cache   SnapshotCache
	lister  kube.ClusterLister
	archive Archive
	log     *zap.SugaredLogger
}

// NewHandler returns the request handlers. archive may be nil.
func NewHandler(cache SnapshotCache, lister kube.ClusterLister, archive Archive, log *zap.SugaredLogger) *Handler {
	return &Handler{
		cache:   cache,
		lister:  lister,
		archive: archive,
		log:     log,
	}
}

type resourcesResponse struct {
	snapshot.ClusterSnapshot
	Error string `json:"error,omitempty"`
}

type refreshRequest struct {
	Cluster string `json:"cluster"`
}

type refreshResponse struct {
	Success   bool                      `json:"success"`
	Resources *snapshot.ClusterSnapshot `json:"resources,omitempty"`
	Error     string                    `json:"error,omitempty"`
}

// GetResources serves the cached snapshot. A failed refresh still answers
// with the previous snapshot and reports the failure in "error".
func (h *Handler) GetResources(c *gin.Context) {
	namespace := c.Query("namespace")
	refresh, ok := boolQuery(c, "refresh")
	if !ok {
		return
	}

	snap, err := h.cache.Get(c.Request.Context(), namespace, refresh)
	if err != nil && snap.IsZero() {
		respondFetchError(c, err)
		return
	}

	resp := resourcesResponse{ClusterSnapshot: snap}
	if err != nil {
		resp.Error = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// ListClusters never fails the request; a lister error is reported next to
// an empty list.
func (h *Handler) ListClusters(c *gin.Context) {
	clusters, err := h.lister.ListClusters(c.Request.Context())
	if err != nil {
		h.log.Warnw("Failed to list clusters", "error", err)
		c.JSON(http.StatusOK, gin.H{"clusters": []string{}, "error": err.Error()})
		return
	}
	if clusters == nil {
		clusters = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"clusters": clusters})
}

func (h *Handler) RefreshResources(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondBadRequest(c, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	snap, err := h.cache.Refresh(c.Request.Context(), req.Cluster)
	if err != nil {
		c.JSON(http.StatusBadGateway, refreshResponse{Success: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, refreshResponse{Success: true, Resources: snap})
}

func (h *Handler) ListSnapshots(c *gin.Context) {
	if h.archive == nil {
		respondServiceUnavailable(c, "snapshot archive is disabled", "ARCHIVE_DISABLED")
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondBadRequest(c, fmt.Sprintf("invalid limit: %s", raw))
			return
		}
		limit = n
	}

	snapshots, err := h.archive.ListSnapshots(c.Request.Context(), c.Query("cluster"), limit)
	if err != nil {
		respondInternalError(c, "list snapshots", err, h.log)
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": snapshots})
}

func (h *Handler) GetSnapshot(c *gin.Context) {
	if h.archive == nil {
		respondServiceUnavailable(c, "snapshot archive is disabled", "ARCHIVE_DISABLED")
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondBadRequest(c, fmt.Sprintf("invalid snapshot id: %s", c.Param("id")))
		return
	}

	snap, err := h.archive.GetSnapshot(c.Request.Context(), id)
	if errors.Is(err, storage.ErrSnapshotNotFound) {
		respondNotFound(c, err.Error())
		return
	}
	if err != nil {
		respondInternalError(c, "load snapshot", err, h.log)
		return
	}
	c.JSON(http.StatusOK, snapshot.FilterNamespace(*snap, c.Query("namespace")))
}

// GetReport renders the cached snapshot as a PDF document.
func (h *Handler) GetReport(c *gin.Context) {
	namespace := c.Query("namespace")
	refresh, ok := boolQuery(c, "refresh")
	if !ok {
		return
	}

	snap, err := h.cache.Get(c.Request.Context(), namespace, refresh)
	if err != nil && snap.IsZero() {
		respondFetchError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := pdfgen.Write(&buf, snap, namespace); err != nil {
		respondInternalError(c, "render report", err, h.log)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="clusterview-%s.pdf"`, snap.Cluster))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func (h *Handler) Health(c *gin.Context) {
	var lastFetch *time.Time
	if t := h.cache.LastFetch(); !t.IsZero() {
		lastFetch = &t
	}
	c.JSON(http.StatusOK, gin.H{"status": "UP", "lastFetch": lastFetch})
}

func boolQuery(c *gin.Context, key string) (bool, bool) {
	raw := c.Query(key)
	if raw == "" {
		return false, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		respondBadRequest(c, fmt.Sprintf("invalid %s: %s", key, raw))
		return false, false
	}
	return v, true
}
