package handlers

import (
	"net/http"

	"github.com/username/taxinator/src/registry"
	"github.com/username/taxinator/src/security"
	"github.com/username/taxinator/src/utils"
)

type TemplateHandler struct {
	templates *registry.Registry
}

func NewTemplateHandler(templates *registry.Registry) *TemplateHandler {
	return &TemplateHandler{templates: templates}
}

func (h *TemplateHandler) HandleListTemplates(w http.ResponseWriter, r *http.Request) {
	utils.SendJSON(w, h.templates.List(), http.StatusOK)
}

// HandleListRoles exposes the supported persona tags.
func HandleListRoles(w http.ResponseWriter, r *http.Request) {
	roles := security.AllRoles()
	out := make([]string, len(roles))
	for i, role := range roles {
		out[i] = string(role)
	}
	utils.SendJSON(w, map[string][]string{"roles": out}, http.StatusOK)
}
