// Copyright 2025 ClassBlogs
// SPDX-License-Identifier: BUSL-1.1
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package admin exposes the network administration API: component
// management, aggregate read endpoints, and the component admin pages.
package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"classblogs/platform/aggregator"
	"classblogs/platform/components/report"
	"classblogs/platform/plugins/registry"
	"classblogs/platform/shared/logger"
	"classblogs/platform/shared/types"
)

// StudentReporter produces per-student activity summaries
type StudentReporter interface {
	ActivityReport(ctx context.Context, user types.UserID) (*report.Report, error)
}

// Config carries the server's dependencies and settings. Reports may be
// nil when the student-report component is disabled; its endpoint then
// responds 404.
type Config struct {
	Registry   *registry.Registry
	Aggregates *aggregator.Cache
	Reports    StudentReporter
	JWTSecret  []byte
	Logger     *logger.Logger
}

// Server is the admin HTTP API
type Server struct {
	registry   *registry.Registry
	aggregates *aggregator.Cache
	reports    StudentReporter
	jwtSecret  []byte
	logger     *logger.Logger
}

// NewServer creates the admin API server
func NewServer(cfg Config) *Server {
	return &Server{
		registry:   cfg.Registry,
		aggregates: cfg.Aggregates,
		reports:    cfg.Reports,
		jwtSecret:  cfg.JWTSecret,
		logger:     cfg.Logger,
	}
}

// Handler builds the full route table. Health and Prometheus metrics are
// unauthenticated; everything under /api/v1 requires an admin token.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // Configure for production
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	r.HandleFunc("/health", s.healthHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Component management
	r.HandleFunc("/api/v1/components", s.requireAdmin(s.listComponentsHandler)).Methods("GET")
	r.HandleFunc("/api/v1/components/{id}/enable", s.requireAdmin(s.enableComponentHandler)).Methods("POST")
	r.HandleFunc("/api/v1/components/{id}/disable", s.requireAdmin(s.disableComponentHandler)).Methods("POST")

	// Component admin pages
	r.HandleFunc("/api/v1/admin-pages", s.requireAdmin(s.adminPageIndexHandler)).Methods("GET")
	for _, page := range s.registry.AdminPages() {
		r.HandleFunc("/api/v1/admin-pages/"+page.Slug, s.requireAdmin(page.Handler)).Methods("GET")
	}

	// Aggregate reads
	r.HandleFunc("/api/v1/aggregates/posts", s.requireAdmin(s.postsHandler)).Methods("GET")
	r.HandleFunc("/api/v1/aggregates/tags", s.requireAdmin(s.tagsHandler)).Methods("GET")
	r.HandleFunc("/api/v1/aggregates/comments/{user}", s.requireAdmin(s.commentsHandler)).Methods("GET")

	// Student reports
	r.HandleFunc("/api/v1/reports/students/{user}", s.requireAdmin(s.studentReportHandler)).Methods("GET")

	return c.Handler(r)
}

// requireAdmin validates the bearer token and checks for the admin role
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.jwtSecret, nil
		})
		if err != nil || !token.Valid {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			http.Error(w, "Invalid token claims", http.StatusUnauthorized)
			return
		}
		if role, _ := claims["role"].(string); role != "admin" {
			http.Error(w, "Admin role required", http.StatusForbidden)
			return
		}

		next(w, r)
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "healthy",
		"components": s.registry.Count(),
	})
}

func (s *Server) listComponentsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"components": s.registry.ListAll(),
	})
}

func (s *Server) enableComponentHandler(w http.ResponseWriter, r *http.Request) {
	s.setComponentEnabled(w, r, true)
}

func (s *Server) disableComponentHandler(w http.ResponseWriter, r *http.Request) {
	s.setComponentEnabled(w, r, false)
}

func (s *Server) setComponentEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	id := mux.Vars(r)["id"]

	var err error
	if enabled {
		err = s.registry.Enable(r.Context(), id)
	} else {
		err = s.registry.Disable(r.Context(), id)
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	s.logger.Info("", "", "component toggled", map[string]interface{}{
		"component_id": id,
		"enabled":      enabled,
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"component": id,
		"enabled":   enabled,
		"message":   "change takes effect on next restart",
	})
}

func (s *Server) adminPageIndexHandler(w http.ResponseWriter, r *http.Request) {
	type pageRef struct {
		Slug  string `json:"slug"`
		Title string `json:"title"`
		Path  string `json:"path"`
	}
	pages := s.registry.AdminPages()
	refs := make([]pageRef, 0, len(pages))
	for _, p := range pages {
		refs = append(refs, pageRef{Slug: p.Slug, Title: p.Title, Path: "/api/v1/admin-pages/" + p.Slug})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"pages": refs})
}

func (s *Server) postsHandler(w http.ResponseWriter, r *http.Request) {
	result, err := s.aggregates.PostsByUser(r.Context())
	if err != nil {
		s.logger.ErrorWithCode("", "", "aggregate posts read failed", http.StatusInternalServerError, err, nil)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) tagsHandler(w http.ResponseWriter, r *http.Request) {
	result, err := s.aggregates.TagCloud(r.Context())
	if err != nil {
		s.logger.ErrorWithCode("", "", "aggregate tags read failed", http.StatusInternalServerError, err, nil)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) commentsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := parseUserID(w, r)
	if !ok {
		return
	}
	result, err := s.aggregates.TotalCommentsForUser(r.Context(), user)
	if err != nil {
		s.logger.ErrorWithCode("", "", "aggregate comments read failed", http.StatusInternalServerError, err, nil)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) studentReportHandler(w http.ResponseWriter, r *http.Request) {
	if s.reports == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "student reports are disabled"})
		return
	}
	user, ok := parseUserID(w, r)
	if !ok {
		return
	}
	result, err := s.reports.ActivityReport(r.Context(), user)
	if err != nil {
		s.logger.ErrorWithCode("", "", "student report failed", http.StatusInternalServerError, err, map[string]interface{}{"user": user})
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func parseUserID(w http.ResponseWriter, r *http.Request) (types.UserID, bool) {
	raw := mux.Vars(r)["user"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user id"})
		return 0, false
	}
	return types.UserID(id), true
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
