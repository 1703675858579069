package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"kycflow/internal/flow"
	"kycflow/internal/session"
	"kycflow/internal/verification"
	"kycflow/pkg/logger"
	"kycflow/pkg/validator"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestAPI wires the full router against an in-memory store and the given
// verification backend URL.
func newTestAPI(t *testing.T, backendURL string) *httptest.Server {
	t.Helper()

	log := logger.NewNop()
	store := session.NewMemoryStore(10 * time.Minute)
	verifier := verification.NewClient(backendURL, 10*time.Second, log)
	orch := flow.NewOrchestrator(store, verifier, flow.NewBroadcaster(), log)
	val := validator.New()

	r := mux.NewRouter()
	RegisterRoutes(r,
		NewSessionHandler(orch, val, log),
		NewCaptureHandler(orch, log),
		NewEventsHandler(orch, log),
	)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

// stubBackend answers the verification endpoint with a fixed success body.
func stubBackend(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/kyc/verify", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"success":true,"message":"Verification completed","data":{"results":{"faceComparison":{"score":0.81},"livenessCheck":{"status":"live","confidence":0.93}}}}`)
	}))
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func uploadImage(t *testing.T, url string, data []byte) (*http.Response, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="image"; filename="frame.jpg"`)
	header.Set("Content-Type", "image/jpeg")
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req, err := http.NewRequest(http.MethodPost, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestSessionAPIFullFlow(t *testing.T) {
	backend := stubBackend(t)
	api := newTestAPI(t, backend.URL)
	base := api.URL + "/api/v1/sessions"

	// Create
	resp, body := doJSON(t, http.MethodPost, base, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := body["id"].(string)
	assert.Equal(t, "WELCOME", body["currentStep"])
	assert.Contains(t, body["userId"].(string), "user_")

	// Start
	resp, body = doJSON(t, http.MethodPost, base+"/"+id+"/start", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "FORM", body["currentStep"])

	// Details
	resp, body = doJSON(t, http.MethodPut, base+"/"+id+"/details", map[string]string{
		"name":         "Jane",
		"surname":      "Doe",
		"dateOfBirth":  "1990-01-01",
		"documentType": "passport",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Advance to document capture
	resp, body = doJSON(t, http.MethodPost, base+"/"+id+"/advance", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "DOCUMENT_CAPTURE", body["currentStep"])

	// Document front
	resp, body = uploadImage(t, base+"/"+id+"/captures/document?side=front", []byte("jpeg-front"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "FACE_CAPTURE", body["currentStep"])

	document := body["document"].(map[string]interface{})
	front := document["front"].(map[string]interface{})
	displayURL := front["displayUrl"].(string)
	assert.Contains(t, displayURL, "/api/v1/sessions/"+id+"/images/")

	// Preview image serving
	imgResp, err := http.Get(api.URL + displayURL)
	require.NoError(t, err)
	defer imgResp.Body.Close()
	assert.Equal(t, http.StatusOK, imgResp.StatusCode)
	assert.Equal(t, "image/jpeg", imgResp.Header.Get("Content-Type"))

	// Four selfies
	for i := 1; i <= 4; i++ {
		resp, body = uploadImage(t, base+"/"+id+"/captures/selfie", []byte(fmt.Sprintf("jpeg-selfie-%d", i)))
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	assert.Equal(t, "REVIEW", body["currentStep"])
	assert.Equal(t, true, body["reviewReady"])
	assert.Len(t, body["selfies"].([]interface{}), 4)

	// Submit
	resp, body = doJSON(t, http.MethodPost, base+"/"+id+"/submit", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "RESULT", body["currentStep"])
	result := body["result"].(map[string]interface{})
	assert.Equal(t, "success", result["outcome"])
	assert.Equal(t, 0.81, result["faceScore"])
	assert.Equal(t, 0.64, result["faceThreshold"])

	// Restart and tear down
	resp, body = doJSON(t, http.MethodPost, base+"/"+id+"/restart", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "WELCOME", body["currentStep"])

	req, err := http.NewRequest(http.MethodDelete, base+"/"+id, nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer delResp.Body.Close()
	assert.Equal(t, http.StatusNoContent, delResp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, base+"/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSessionAPIDetailsValidation(t *testing.T) {
	api := newTestAPI(t, "")
	base := api.URL + "/api/v1/sessions"

	_, body := doJSON(t, http.MethodPost, base, nil)
	id := body["id"].(string)
	_, _ = doJSON(t, http.MethodPost, base+"/"+id+"/start", nil)

	resp, body := doJSON(t, http.MethodPut, base+"/"+id+"/details", map[string]string{
		"name":         "Jane",
		"surname":      "Doe",
		"dateOfBirth":  "not-a-date",
		"documentType": "library_card",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Validation failed", body["error"])

	fields := body["fields"].(map[string]interface{})
	assert.Contains(t, fields, "dateOfBirth")
	assert.Contains(t, fields, "documentType")
}

func TestSessionAPISubmitBeforeReviewConflicts(t *testing.T) {
	api := newTestAPI(t, "")
	base := api.URL + "/api/v1/sessions"

	_, body := doJSON(t, http.MethodPost, base, nil)
	id := body["id"].(string)
	_, _ = doJSON(t, http.MethodPost, base+"/"+id+"/start", nil)
	_, _ = doJSON(t, http.MethodPut, base+"/"+id+"/details", map[string]string{
		"name": "Jane", "surname": "Doe", "dateOfBirth": "1990-01-01", "documentType": "passport",
	})
	_, _ = doJSON(t, http.MethodPost, base+"/"+id+"/advance", nil)
	_, _ = uploadImage(t, base+"/"+id+"/captures/document", []byte("jpeg-front"))

	// Submit before REVIEW is reached conflicts.
	resp, body := doJSON(t, http.MethodPost, base+"/"+id+"/submit", nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INVALID_STEP", body["code"])
}

func TestSessionAPIUnknownSession(t *testing.T) {
	api := newTestAPI(t, "")
	base := api.URL + "/api/v1/sessions"

	resp, _ := doJSON(t, http.MethodGet, base+"/2f1a9f5e-3c3d-4a64-bb1e-6f1c1f9a0b42", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body := doJSON(t, http.MethodGet, base+"/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid session ID", body["error"])
}

func TestSessionAPICaptureRequiresImageField(t *testing.T) {
	api := newTestAPI(t, "")
	base := api.URL + "/api/v1/sessions"

	_, body := doJSON(t, http.MethodPost, base, nil)
	id := body["id"].(string)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("other", "value"))
	require.NoError(t, writer.Close())

	req, err := http.NewRequest(http.MethodPost, base+"/"+id+"/captures/selfie", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSessionAPIInvalidDocumentSide(t *testing.T) {
	api := newTestAPI(t, "")
	base := api.URL + "/api/v1/sessions"

	_, body := doJSON(t, http.MethodPost, base, nil)
	id := body["id"].(string)

	resp, body := uploadImage(t, base+"/"+id+"/captures/document?side=sideways", []byte("jpeg"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Query parameter 'side' must be front or back", body["error"])
}

func TestSessionAPICaptureErrorBanner(t *testing.T) {
	api := newTestAPI(t, "")
	base := api.URL + "/api/v1/sessions"

	_, body := doJSON(t, http.MethodPost, base, nil)
	id := body["id"].(string)

	resp, body := doJSON(t, http.MethodPost, base+"/"+id+"/capture-errors", map[string]string{
		"message": "camera unavailable",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "camera unavailable", body["errorMessage"])

	resp, body = doJSON(t, http.MethodPost, base+"/"+id+"/banner/dismiss", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, body["errorMessage"])
}
