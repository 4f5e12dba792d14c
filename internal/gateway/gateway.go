// Package gateway talks to the SAP backend systems: document status and PDF
// services, the invoice search, the analytics view and the procurement status
// API. Backend failures are folded into statuses or empty results.
package gateway

import (
	"github.com/xaenox/billing-assistant/internal/normalize"
	"go.uber.org/zap"
)

// Options carries the system values the backend paths are built from.
type Options struct {
	SystemAlias      string
	ProcurementAlias string
	SAPClient        string
	// LinkBaseURL is prefixed to document paths handed to users.
	LinkBaseURL   string
	AnalyticsPath string
	Sectors       normalize.Sectors
}

type Gateway struct {
	documents   *Client
	analytics   *Client
	procurement *Client
	opts        Options
	logger      *zap.Logger
}

func New(documents, analytics, procurement *Client, opts Options, logger *zap.Logger) *Gateway {
	if opts.Sectors == (normalize.Sectors{}) {
		opts.Sectors = normalize.DefaultSectors
	}
	return &Gateway{
		documents:   documents,
		analytics:   analytics,
		procurement: procurement,
		opts:        opts,
		logger:      logger,
	}
}

// DownloadLink is a document URL for the user. Reachable reports whether the
// probe request succeeded.
type DownloadLink struct {
	Path      string `json:"path"`
	URL       string `json:"downloadUrl"`
	Reachable bool   `json:"-"`
}

// Available reports whether the link can be handed out directly.
func (l DownloadLink) Available() bool {
	return l.URL != "" && l.Reachable
}

func (g *Gateway) link(path string) DownloadLink {
	if path == "" {
		return DownloadLink{}
	}
	return DownloadLink{Path: path, URL: g.opts.LinkBaseURL + path}
}
