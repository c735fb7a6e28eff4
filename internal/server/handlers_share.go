package server

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/syncbridge/syncd/internal/pathkey"
)

// handleShareLinkRedirect resolves a share token minted by the admin API
// and 302s straight to the download endpoint for the path it's bound to
// (SPEC_FULL.md "Supplemented Features": shared-link submission endpoint).
func (s *Server) handleShareLinkRedirect(w http.ResponseWriter, r *http.Request) error {
	token := r.PathValue("token")
	if token == "" {
		return badRequest("token is required")
	}

	link, err := s.store.ResolveShareLink(r.Context(), token)
	if err != nil {
		return wrapStorage("resolving share link", err)
	}

	p, err := pathkey.FromSlashString(link.RelativePath)
	if err != nil {
		return storageErr("share link has an invalid stored path", err)
	}

	target := "/sys/download/" + strconv.FormatInt(link.WatchGroupID, 10) + "?path=" + url.QueryEscape(p.String())
	http.Redirect(w, r, target, http.StatusFound)

	return nil
}
