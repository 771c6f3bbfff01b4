package exporters

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/smazurov/uvcnode/internal/metrics"
)

func TestHTTPHandler(t *testing.T) {
	metrics.FramePublished(90, 2048)
	defer metrics.Delete(90)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	HTTPHandler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	body := w.Body.String()
	for _, want := range []string{
		`uvcnode_input_frames_published_total{input_id="90"} 1`,
		`uvcnode_input_frame_bytes{input_id="90"} 2048`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("response missing %q", want)
		}
	}
}
