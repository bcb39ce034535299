package evmkit

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/ipfs-force-community/sophon-evmkit/types"
)

// SyncSource describes the node a kit follows.
type SyncSource struct {
	Name      string
	URL       string
	Websocket bool
}

// String hides the credentials carried in the url.
func (s SyncSource) String() string {
	u, err := url.Parse(s.URL)
	if err != nil {
		return s.Name
	}
	u.User = nil
	if idx := strings.LastIndex(u.Path, "/"); idx >= 0 && idx < len(u.Path)-1 {
		u.Path = u.Path[:idx+1] + "***"
	}
	return fmt.Sprintf("%s %s", s.Name, u.String())
}

func InfuraWebSocketSyncSource(network NetworkType, projectID, secret string) (*SyncSource, error) {
	return infuraSyncSource(network, projectID, secret, true)
}

func InfuraHttpSyncSource(network NetworkType, projectID, secret string) (*SyncSource, error) {
	return infuraSyncSource(network, projectID, secret, false)
}

func infuraSyncSource(network NetworkType, projectID, secret string, websocket bool) (*SyncSource, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, errors.Wrap(types.ErrSyncSourceConstruction, "empty infura project id")
	}
	if strings.ContainsAny(projectID, "/?#@ ") {
		return nil, errors.Wrapf(types.ErrSyncSourceConstruction, "invalid infura project id %q", projectID)
	}
	subdomain, ok := network.infuraSubdomain()
	if !ok {
		return nil, errors.Wrapf(types.ErrSyncSourceConstruction, "unsupported network %s", network)
	}

	u := &url.URL{Host: subdomain + ".infura.io"}
	name := "Infura Http"
	if websocket {
		u.Scheme = "wss"
		u.Path = "/ws/v3/" + projectID
		name = "Infura WebSocket"
	} else {
		u.Scheme = "https"
		u.Path = "/v3/" + projectID
	}
	if secret != "" {
		u.User = url.UserPassword("", secret)
	}

	return &SyncSource{Name: name, URL: u.String(), Websocket: websocket}, nil
}

// SyncSourceFor picks the infura source matching the communication mode.
// Websocket is used unless http is asked for explicitly.
func SyncSourceFor(mode types.CommunicationMode, network NetworkType, projectID, secret string) (*SyncSource, error) {
	if mode == types.CommunicationModeHttp {
		return InfuraHttpSyncSource(network, projectID, secret)
	}
	return InfuraWebSocketSyncSource(network, projectID, secret)
}
