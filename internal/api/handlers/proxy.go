package handlers

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dvloznov/carteira/internal/api/middleware"
	"github.com/rs/zerolog"
)

// maxProxiedImage caps a proxied image at 5 MiB.
const maxProxiedImage = 5 << 20

const maxProxyRedirects = 5

var errRedirectNotAllowed = errors.New("redirect target is not allowed")

// ProxyHandler relays profile pictures so the browser never talks to the
// identity provider's image host directly.
type ProxyHandler struct {
	client       *http.Client
	allowedHosts []string
	log          zerolog.Logger
}

// NewProxyHandler creates a proxy limited to https URLs on allowedHosts or
// their subdomains. Redirects are followed only while they stay on those hosts.
func NewProxyHandler(client *http.Client, allowedHosts []string, log zerolog.Logger) *ProxyHandler {
	h := &ProxyHandler{
		allowedHosts: allowedHosts,
		log:          log,
	}
	c := http.Client{}
	if client != nil {
		c = *client
	}
	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxProxyRedirects {
			return errors.New("too many redirects")
		}
		if !h.allowed(req.URL) {
			return errRedirectNotAllowed
		}
		return nil
	}
	h.client = &c
	return h
}

func (h *ProxyHandler) allowed(u *url.URL) bool {
	if u.Scheme != "https" || u.User != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, a := range h.allowedHosts {
		a = strings.ToLower(strings.TrimSpace(a))
		if a != "" && (host == a || strings.HasSuffix(host, "."+a)) {
			return true
		}
	}
	return false
}

// ProfilePicture handles GET /api/profile-picture-proxy?url=
func (h *ProxyHandler) ProfilePicture(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Missing required parameter: url")
		return
	}
	target, err := url.Parse(raw)
	if err != nil || !h.allowed(target) {
		middleware.WriteError(w, http.StatusBadRequest, "URL host is not allowed")
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target.String(), nil)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid url")
		return
	}
	resp, err := h.client.Do(req)
	if err != nil {
		h.log.Warn().Err(err).Str("host", target.Host).Msg("Profile picture fetch failed")
		middleware.WriteError(w, http.StatusBadGateway, "Failed to fetch image")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		middleware.WriteError(w, http.StatusBadGateway, "Image host returned "+strconv.Itoa(resp.StatusCode))
		return
	}
	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		middleware.WriteError(w, http.StatusBadGateway, "Upstream response is not an image")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, io.LimitReader(resp.Body, maxProxiedImage)); err != nil {
		h.log.Warn().Err(err).Msg("Profile picture copy interrupted")
	}
}
