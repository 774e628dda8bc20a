package forkscore

import (
	"net/rpc"
	"os/exec"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"
)

// Handshake is the shared magic cookie both the host and an
// out-of-process scorer plugin must present, the standard
// hashicorp/go-plugin pattern for refusing to launch a binary that
// wasn't built to speak this protocol.
var Handshake = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "TIMECOIN_FORKSCORE_PLUGIN",
	MagicCookieValue: "resolve_fork",
}

// PluginMap is the set of plugins this host recognizes, keyed by the name
// a plugin binary registers under.
var PluginMap = map[string]plugin.Plugin{
	"scorer": &ScorerPlugin{},
}

// ScorerPlugin adapts Scorer to hashicorp/go-plugin's net/rpc plugin
// interface. A heuristic or AI-driven accept_fork can ship as its own
// binary implementing Scorer and be loaded here without the host process
// linking against it, the structural point of making this one
// abstraction pluggable per spec.md §4.7.
type ScorerPlugin struct {
	Impl Scorer
}

func (p *ScorerPlugin) Server(*plugin.MuxBroker) (interface{}, error) {
	return &scorerRPCServer{impl: p.Impl}, nil
}

func (p *ScorerPlugin) Client(b *plugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &scorerRPCClient{client: c}, nil
}

type scorerRPCServer struct {
	impl Scorer
}

type acceptForkArgs struct {
	Local     Snapshot
	Candidate Snapshot
}

func (s *scorerRPCServer) AcceptFork(args acceptForkArgs, resp *bool) error {
	*resp = s.impl.AcceptFork(args.Local, args.Candidate)
	return nil
}

// scorerRPCClient implements Scorer over an RPC connection to a
// ScorerPlugin server running in a separate process.
type scorerRPCClient struct {
	client *rpc.Client
}

func (c *scorerRPCClient) AcceptFork(local, candidate Snapshot) bool {
	var resp bool
	if err := c.client.Call("Plugin.AcceptFork", acceptForkArgs{Local: local, Candidate: candidate}, &resp); err != nil {
		// An unreachable or misbehaving plugin must not be able to force a
		// reorg; fail closed.
		return false
	}
	return resp
}

// LaunchExternalScorer starts the plugin binary at path and returns a
// Scorer backed by it, along with a kill function the caller must invoke
// once done. log receives the plugin's own stderr/stdout framing.
func LaunchExternalScorer(path string, log hclog.Logger) (Scorer, func(), error) {
	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig: Handshake,
		Plugins:         PluginMap,
		Cmd:             exec.Command(path),
		Logger:          log,
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, nil, err
	}
	raw, err := rpcClient.Dispense("scorer")
	if err != nil {
		client.Kill()
		return nil, nil, err
	}
	return raw.(Scorer), client.Kill, nil
}

// Serve runs the current process as a forkscore plugin server hosting
// impl, the entry point an external accept_fork binary calls from its own
// main().
func Serve(impl Scorer) {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: Handshake,
		Plugins: map[string]plugin.Plugin{
			"scorer": &ScorerPlugin{Impl: impl},
		},
	})
}
