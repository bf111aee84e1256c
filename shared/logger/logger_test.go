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

package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"testing"
)

// TestNew tests logger initialization
func TestNew(t *testing.T) {
	l := New("aggregator")
	if l.Component != "aggregator" {
		t.Errorf("expected component %q, got %q", "aggregator", l.Component)
	}
}

// captureOutput captures log output written during fn
func captureOutput(fn func()) string {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)
	log.SetFlags(0)
	fn()
	return buf.String()
}

func parseEntry(t *testing.T, out string) LogEntry {
	t.Helper()
	line := strings.TrimSpace(out)
	var entry LogEntry
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v (%q)", err, line)
	}
	return entry
}

func TestLog_StructuredFields(t *testing.T) {
	l := New("aggregator")

	out := captureOutput(func() {
		l.Info("blog-7", "req-1", "scan complete", map[string]interface{}{
			"posts": 42,
		})
	})

	entry := parseEntry(t, out)
	if entry.Level != INFO {
		t.Errorf("expected level INFO, got %s", entry.Level)
	}
	if entry.TenantID != "blog-7" {
		t.Errorf("expected tenant_id blog-7, got %q", entry.TenantID)
	}
	if entry.RequestID != "req-1" {
		t.Errorf("expected request_id req-1, got %q", entry.RequestID)
	}
	if entry.Message != "scan complete" {
		t.Errorf("unexpected message %q", entry.Message)
	}
	if got, ok := entry.Fields["posts"].(float64); !ok || got != 42 {
		t.Errorf("expected posts field 42, got %v", entry.Fields["posts"])
	}
}

func TestWarnWithError(t *testing.T) {
	l := New("aggregator")

	out := captureOutput(func() {
		l.WarnWithError("blog-3", "", "tenant skipped", errors.New("connection refused"), nil)
	})

	entry := parseEntry(t, out)
	if entry.Level != WARN {
		t.Errorf("expected level WARN, got %s", entry.Level)
	}
	if entry.Fields["error"] != "connection refused" {
		t.Errorf("expected error field, got %v", entry.Fields["error"])
	}
}

func TestInfoWithDuration(t *testing.T) {
	l := New("admin")

	out := captureOutput(func() {
		l.InfoWithDuration("", "req-9", "request served", 12.5, nil)
	})

	entry := parseEntry(t, out)
	if got, ok := entry.Fields["duration_ms"].(float64); !ok || got != 12.5 {
		t.Errorf("expected duration_ms 12.5, got %v", entry.Fields["duration_ms"])
	}
}

func TestErrorWithCode(t *testing.T) {
	l := New("admin")

	out := captureOutput(func() {
		l.ErrorWithCode("", "req-2", "bad request", 400, errors.New("missing id"), nil)
	})

	entry := parseEntry(t, out)
	if entry.Level != ERROR {
		t.Errorf("expected level ERROR, got %s", entry.Level)
	}
	if got, ok := entry.Fields["status_code"].(float64); !ok || got != 400 {
		t.Errorf("expected status_code 400, got %v", entry.Fields["status_code"])
	}
}
