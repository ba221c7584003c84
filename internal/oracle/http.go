package oracle

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"blockbreak/internal/modes"
)

type profileHandler struct {
	profiles *Profiles
	logger   *log.Logger
}

func (h *profileHandler) profileFor(w http.ResponseWriter, r *http.Request) {

	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	email, err := hex.DecodeString(r.URL.Query().Get("email"))

	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	ciphertext, err := h.profiles.Encrypt(email)

	if err != nil {
		h.logger.Print(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Add("Content-Type", "application/octet-stream")
	if _, err := w.Write(ciphertext); err != nil {
		h.logger.Print(err)
	}
}

func (h *profileHandler) role(w http.ResponseWriter, r *http.Request) {

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ciphertext, err := io.ReadAll(r.Body)
	if err != nil || len(ciphertext) == 0 {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	role, err := h.profiles.Role(ciphertext)

	var perr *modes.PaddingError
	var lerr *modes.LengthError

	switch {
	case errors.As(err, &perr), errors.As(err, &lerr):
		w.WriteHeader(http.StatusBadRequest)
	case err != nil:
		h.logger.Print(err)
		w.WriteHeader(http.StatusBadRequest)
	case role == "admin":
		w.WriteHeader(http.StatusAccepted)
	case role == "":
		w.WriteHeader(http.StatusBadRequest)
	default:
		w.WriteHeader(http.StatusForbidden)
	}
}

// NewProfileHandler serves profiles over HTTP:
//
//	GET  /profile?email=<hex>  ciphertext of the profile
//	POST /role                 202 for admin, 403 for any other role, 400 otherwise
func NewProfileHandler(profiles *Profiles, logger *log.Logger) http.Handler {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	handler := &profileHandler{profiles: profiles, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/profile", handler.profileFor)
	mux.HandleFunc("/role", handler.role)

	return mux
}

// Profiles are short records, anything beyond this is not a profile.
const maxProfileResponse = 1 << 20

// HTTPOracle queries a remote profile service.
type HTTPOracle struct {
	BaseURL string
	Client  *http.Client
}

func (o *HTTPOracle) client() *http.Client {
	if o.Client == nil {
		return http.DefaultClient
	}
	return o.Client
}

func (o *HTTPOracle) Encrypt(email []byte) ([]byte, error) {
	u := strings.TrimSuffix(o.BaseURL, "/") + "/profile?email=" + url.QueryEscape(hex.EncodeToString(email))

	resp, err := o.client().Get(u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile service returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileResponse+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxProfileResponse {
		return nil, fmt.Errorf("profile response exceeds %d bytes", maxProfileResponse)
	}

	return body, nil
}

// Submit posts a ciphertext to the role endpoint and returns the status code.
func (o *HTTPOracle) Submit(ciphertext []byte) (int, error) {
	u := strings.TrimSuffix(o.BaseURL, "/") + "/role"

	resp, err := o.client().Post(u, "application/octet-stream", bytes.NewReader(ciphertext))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	return resp.StatusCode, nil
}
