package network

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ID identifies a Tezos network, e.g. "mainnet" or "ghostnet".
type ID string

const (
	Mainnet   ID = "mainnet"
	Ghostnet  ID = "ghostnet"
	Oxfordnet ID = "oxfordnet"
	Shadownet ID = "shadownet"

	// Fallback is returned by Lookup for identifiers the registry does not know.
	Fallback = Ghostnet
)

func (id ID) String() string {
	return string(id)
}

// Network describes the endpoints used to talk to one Tezos network.
type Network struct {
	ID          ID     `yaml:"id"`
	Name        string `yaml:"name"`
	RPCEndpoint string `yaml:"rpc"`
	ExplorerAPI string `yaml:"explorer_api"`
	ExplorerURL string `yaml:"explorer_url"`
	FaucetURL   string `yaml:"faucet,omitempty"`
	Testnet     bool   `yaml:"testnet"`
}

// OperationURL links to an operation on the network's web explorer.
func (n Network) OperationURL(hash string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(n.ExplorerURL, "/"), hash)
}

// AccountURL links to an account or contract on the network's web explorer.
func (n Network) AccountURL(address string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(n.ExplorerURL, "/"), address)
}

var builtin = []Network{
	{
		ID:          Mainnet,
		Name:        "Mainnet",
		RPCEndpoint: "https://mainnet.api.tez.ie",
		ExplorerAPI: "https://api.tzkt.io",
		ExplorerURL: "https://tzkt.io",
	},
	{
		ID:          Ghostnet,
		Name:        "Ghostnet",
		RPCEndpoint: "https://ghostnet.ecadinfra.com",
		ExplorerAPI: "https://api.ghostnet.tzkt.io",
		ExplorerURL: "https://ghostnet.tzkt.io",
		FaucetURL:   "https://faucet.ghostnet.teztnets.com",
		Testnet:     true,
	},
	{
		ID:          Oxfordnet,
		Name:        "Oxfordnet",
		RPCEndpoint: "https://oxfordnet.ecadinfra.com",
		ExplorerAPI: "https://api.oxfordnet.tzkt.io",
		ExplorerURL: "https://oxfordnet.tzkt.io",
		Testnet:     true,
	},
	{
		ID:          Shadownet,
		Name:        "Shadownet",
		RPCEndpoint: "https://rpc.shadownet.teztnets.com",
		ExplorerAPI: "https://api.shadownet.tzkt.io",
		ExplorerURL: "https://shadownet.tzkt.io",
		FaucetURL:   "https://faucet.shadownet.teztnets.com",
		Testnet:     true,
	},
}

// Registry is an immutable lookup from network identifier to endpoints.
type Registry struct {
	networks map[ID]Network
	order    []ID
	def      ID
}

// Options customise the built-in registry.
type Options struct {
	// Default is the network selected at startup. Unknown values fall back to ghostnet.
	Default string
	// RPCOverrides and APIOverrides replace endpoints of known networks.
	RPCOverrides map[string]string
	APIOverrides map[string]string
	// File is an optional YAML document with a top-level "networks" list.
	File string
}

type fileDocument struct {
	Networks []Network `yaml:"networks"`
}

// NewRegistry builds the registry from the built-in table, then the YAML file,
// then the per-network overrides.
func NewRegistry(opts Options) (*Registry, error) {
	r := &Registry{networks: make(map[ID]Network, len(builtin))}
	for _, n := range builtin {
		r.add(n)
	}

	if opts.File != "" {
		if err := r.loadFile(opts.File); err != nil {
			return nil, err
		}
	}

	for id, endpoint := range opts.RPCOverrides {
		n, ok := r.networks[ID(id)]
		if !ok {
			return nil, fmt.Errorf("RPC override for unknown network %q", id)
		}
		n.RPCEndpoint = endpoint
		r.networks[n.ID] = n
	}
	for id, endpoint := range opts.APIOverrides {
		n, ok := r.networks[ID(id)]
		if !ok {
			return nil, fmt.Errorf("explorer API override for unknown network %q", id)
		}
		n.ExplorerAPI = endpoint
		r.networks[n.ID] = n
	}

	r.def = r.Lookup(ID(opts.Default)).ID
	return r, nil
}

// Default returns a registry holding only the built-in networks.
func Default() *Registry {
	r, _ := NewRegistry(Options{})
	return r
}

func (r *Registry) add(n Network) {
	if _, exists := r.networks[n.ID]; !exists {
		r.order = append(r.order, n.ID)
	}
	r.networks[n.ID] = n
}

func (r *Registry) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read networks file: %w", err)
	}

	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse networks file %s: %w", path, err)
	}

	for i, n := range doc.Networks {
		if n.ID == "" {
			return fmt.Errorf("networks file %s: entry %d has no id", path, i)
		}
		base, known := r.networks[n.ID]
		if known {
			n = merge(base, n)
		}
		if n.RPCEndpoint == "" || n.ExplorerAPI == "" {
			return fmt.Errorf("networks file %s: network %s needs rpc and explorer_api", path, n.ID)
		}
		if n.Name == "" {
			n.Name = string(n.ID)
		}
		r.add(n)
	}
	return nil
}

// merge overlays the non-empty fields of override onto base.
func merge(base, override Network) Network {
	if override.Name != "" {
		base.Name = override.Name
	}
	if override.RPCEndpoint != "" {
		base.RPCEndpoint = override.RPCEndpoint
	}
	if override.ExplorerAPI != "" {
		base.ExplorerAPI = override.ExplorerAPI
	}
	if override.ExplorerURL != "" {
		base.ExplorerURL = override.ExplorerURL
	}
	if override.FaucetURL != "" {
		base.FaucetURL = override.FaucetURL
	}
	return base
}

// Lookup returns the network for id, or the fallback testnet if id is unknown.
func (r *Registry) Lookup(id ID) Network {
	if n, ok := r.networks[id]; ok {
		return n
	}
	return r.networks[Fallback]
}

// Get returns the network for id and whether it is registered.
func (r *Registry) Get(id ID) (Network, bool) {
	n, ok := r.networks[id]
	return n, ok
}

// DefaultNetwork returns the network selected at startup.
func (r *Registry) DefaultNetwork() Network {
	return r.networks[r.def]
}

// List returns all networks in registration order.
func (r *Registry) List() []Network {
	out := make([]Network, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.networks[id])
	}
	return out
}

// Next returns the network after id in registration order, wrapping around.
func (r *Registry) Next(id ID) Network {
	for i, candidate := range r.order {
		if candidate == id {
			return r.networks[r.order[(i+1)%len(r.order)]]
		}
	}
	return r.DefaultNetwork()
}

// IDs returns the sorted network identifiers, for help text.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.order))
	for _, id := range r.order {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	return ids
}
