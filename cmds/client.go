package cmds

import (
	"net/http"
	"net/url"

	"github.com/filecoin-project/go-jsonrpc"
	"github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"
	"github.com/urfave/cli/v2"

	"github.com/ipfs-force-community/sophon-evmkit/api"
)

func NewEvmKitClient(ctx *cli.Context) (*api.EvmKitAPIStruct, jsonrpc.ClientCloser, error) {
	addr, err := DialArgs(ctx.String("listen"))
	if err != nil {
		return nil, nil, err
	}
	var client api.EvmKitAPIStruct
	closer, err := jsonrpc.NewMergeClient(ctx.Context, addr,
		api.Namespace, []interface{}{&client.Internal}, http.Header{})
	if err != nil {
		return nil, nil, err
	}
	return &client, closer, nil
}

func DialArgs(addr string) (string, error) {
	ma, err := multiaddr.NewMultiaddr(addr)
	if err == nil {
		_, addr, err := manet.DialArgs(ma)
		if err != nil {
			return "", err
		}

		return "ws://" + addr + "/rpc/v0", nil
	}

	_, err = url.Parse(addr)
	if err != nil {
		return "", err
	}
	return addr + "/rpc/v0", nil
}
