package consul

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/consul/api"

	"github.com/mwantia/metacat"
	"github.com/mwantia/metacat/data"
)

// ConsulRegistry persists the namespace tree, datasource definitions and
// table definitions in HashiCorp Consul KV.
//
// Key layout beneath the configured prefix:
//   - namespaces/<dotted.namespace>
//   - datasources/<dotted.owner>.<name>
//   - tables/<dotted.namespace>.<name>
//
// Keys are lowercased dotted namespace paths; the original-case
// definitions are stored as JSON values.
//
// Consul KV has a 512KB limit per value, which is far beyond any catalog
// definition this registry stores.
type ConsulRegistry struct {
	mu     sync.RWMutex
	client *api.Client
	kv     *api.KV

	config *Config
}

// Config contains configuration options for the Consul registry.
type Config struct {
	// Address of the Consul server (default: "127.0.0.1:8500")
	Address string

	// Token for Consul ACL authentication (optional)
	Token string

	// Datacenter to use (optional)
	Datacenter string

	// Namespace for Consul Enterprise (optional)
	Namespace string

	// Prefix for all keys in Consul KV (default: "metacat")
	Prefix string
}

// NewConsulRegistry creates a Consul-backed registry and seeds the
// reserved roots.
func NewConsulRegistry(config *Config) (*ConsulRegistry, error) {
	if config == nil {
		config = &Config{}
	}

	if config.Address == "" {
		config.Address = "127.0.0.1:8500"
	}
	if config.Prefix == "" {
		config.Prefix = "metacat"
	}

	clientConfig := api.DefaultConfig()
	clientConfig.Address = config.Address
	if config.Token != "" {
		clientConfig.Token = config.Token
	}
	if config.Datacenter != "" {
		clientConfig.Datacenter = config.Datacenter
	}
	if config.Namespace != "" {
		clientConfig.Namespace = config.Namespace
	}

	client, err := api.NewClient(clientConfig)
	if err != nil {
		return nil, err
	}

	registry := &ConsulRegistry{
		client: client,
		kv:     client.KV(),
		config: config,
	}

	if err := registry.seedRoots(); err != nil {
		return nil, fmt.Errorf("failed to seed reserved roots: %w", err)
	}

	return registry, nil
}

// seedRoots writes the two reserved root namespaces unless present.
func (r *ConsulRegistry) seedRoots() error {
	for _, root := range []string{data.RootDatasource, data.RootMetastore} {
		key := r.buildKey("namespaces", root)

		pair, _, err := r.kv.Get(key, nil)
		if err != nil {
			return err
		}
		if pair != nil {
			continue
		}

		if _, err := r.kv.Put(&api.KVPair{Key: key, Value: []byte("{}")}, nil); err != nil {
			return err
		}
	}
	return nil
}

// buildKey constructs the full Consul KV key for a registry entry.
func (r *ConsulRegistry) buildKey(section, key string) string {
	prefix := strings.TrimSuffix(r.config.Prefix, "/")
	return prefix + "/" + section + "/" + strings.ToLower(key)
}

func dottedKey(namespace data.Namespace) string {
	return strings.ToLower(namespace.String())
}

// LookupDatasource returns the datasource registered under the owner
// namespace with the given name.
func (r *ConsulRegistry) LookupDatasource(ctx context.Context, owner data.Namespace, name string) (*data.DatasourceDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pair, _, err := r.kv.Get(r.buildKey("datasources", dottedKey(owner)+"."+name), queryOptions(ctx))
	if err != nil {
		return nil, err
	}
	if pair == nil {
		return nil, fmt.Errorf("%w: %s.%s", data.ErrDatasourceNotFound, owner, name)
	}

	var def data.DatasourceDefinition
	if err := json.Unmarshal(pair.Value, &def); err != nil {
		return nil, fmt.Errorf("failed to decode datasource definition: %w", err)
	}
	return &def, nil
}

// CreateDatasource registers a new datasource definition, assigning it a
// unique id when none is set.
func (r *ConsulRegistry) CreateDatasource(ctx context.Context, def *data.DatasourceDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.buildKey("datasources", dottedKey(def.Owner)+"."+def.Name)
	pair, _, err := r.kv.Get(key, queryOptions(ctx))
	if err != nil {
		return err
	}
	if pair != nil {
		return fmt.Errorf("%w: %s", data.ErrDatasourceExists, def.FullNamespace())
	}

	if def.ID == "" {
		def.ID = uuid.NewString()
	}

	raw, err := json.Marshal(def)
	if err != nil {
		return err
	}

	_, err = r.kv.Put(&api.KVPair{Key: key, Value: raw}, writeOptions(ctx))
	return err
}

// DropDatasource removes a registered datasource definition.
func (r *ConsulRegistry) DropDatasource(ctx context.Context, owner data.Namespace, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.buildKey("datasources", dottedKey(owner)+"."+name)
	pair, _, err := r.kv.Get(key, queryOptions(ctx))
	if err != nil {
		return err
	}
	if pair == nil {
		return fmt.Errorf("%w: %s.%s", data.ErrDatasourceNotFound, owner, name)
	}

	_, err = r.kv.Delete(key, writeOptions(ctx))
	return err
}

// ListDatasources returns all datasources registered directly under the
// owner namespace.
func (r *ConsulRegistry) ListDatasources(ctx context.Context, owner data.Namespace) ([]*data.DatasourceDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pairs, _, err := r.kv.List(r.buildKey("datasources", dottedKey(owner))+".", queryOptions(ctx))
	if err != nil {
		return nil, err
	}

	var defs []*data.DatasourceDefinition
	for _, pair := range pairs {
		var def data.DatasourceDefinition
		if err := json.Unmarshal(pair.Value, &def); err != nil {
			return nil, err
		}
		// The list prefix also matches deeper owners, keep direct children
		if !def.Owner.Equal(owner) {
			continue
		}
		defs = append(defs, &def)
	}

	return defs, nil
}

// ListChildNamespaces returns the names of the immediate children of the
// namespace across created namespaces, datasources and tables.
func (r *ConsulRegistry) ListChildNamespaces(ctx context.Context, namespace data.Namespace) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	prefix := dottedKey(namespace)
	if !namespace.IsEmpty() {
		exists, err := r.namespaceExists(ctx, prefix)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("%w: %s", data.ErrNamespaceNotFound, namespace)
		}
	}

	seen := make(map[string]bool)
	var children []string
	collect := func(dotted string) {
		if child, ok := childSegment(dotted, prefix); ok && !seen[child] {
			seen[child] = true
			children = append(children, child)
		}
	}

	for _, section := range []string{"namespaces", "datasources", "tables"} {
		keys, _, err := r.kv.Keys(r.sectionPrefix(section), "", queryOptions(ctx))
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			collect(strings.TrimPrefix(key, r.sectionPrefix(section)))
		}
	}

	return children, nil
}

// CreateNamespace records a new namespace. The parent must already exist.
func (r *ConsulRegistry) CreateNamespace(ctx context.Context, namespace data.Namespace, properties map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prefix := dottedKey(namespace)
	exists, err := r.namespaceExists(ctx, prefix)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", data.ErrNamespaceExists, namespace)
	}

	if parent := namespace.Parent(); !parent.IsEmpty() {
		parentExists, err := r.namespaceExists(ctx, dottedKey(parent))
		if err != nil {
			return err
		}
		if !parentExists {
			return fmt.Errorf("%w: %s", data.ErrNamespaceNotFound, parent)
		}
	}

	raw := []byte("{}")
	if len(properties) > 0 {
		raw, err = json.Marshal(properties)
		if err != nil {
			return err
		}
	}

	_, err = r.kv.Put(&api.KVPair{Key: r.buildKey("namespaces", prefix), Value: raw}, writeOptions(ctx))
	return err
}

// DropNamespace removes a namespace and, with cascade, its whole subtree.
func (r *ConsulRegistry) DropNamespace(ctx context.Context, namespace data.Namespace, cascade bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prefix := dottedKey(namespace)
	exists, err := r.namespaceExists(ctx, prefix)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", data.ErrNamespaceNotFound, namespace)
	}

	if !cascade {
		hasChildren, err := r.hasChildren(ctx, prefix)
		if err != nil {
			return err
		}
		if hasChildren {
			return fmt.Errorf("%w: %s", data.ErrNamespaceNotEmpty, namespace)
		}
	}

	if _, err := r.kv.Delete(r.buildKey("namespaces", prefix), writeOptions(ctx)); err != nil {
		return err
	}

	for _, section := range []string{"namespaces", "datasources", "tables"} {
		if _, err := r.kv.DeleteTree(r.sectionPrefix(section)+prefix+".", writeOptions(ctx)); err != nil {
			return err
		}
	}
	return nil
}

// LookupTable returns a stored table definition.
func (r *ConsulRegistry) LookupTable(ctx context.Context, id data.Identifier) (*data.TableDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pair, _, err := r.kv.Get(r.buildKey("tables", id.String()), queryOptions(ctx))
	if err != nil {
		return nil, err
	}
	if pair == nil {
		return nil, fmt.Errorf("%w: %s", data.ErrTableNotFound, id)
	}

	var table data.TableDefinition
	if err := json.Unmarshal(pair.Value, &table); err != nil {
		return nil, fmt.Errorf("failed to decode table definition: %w", err)
	}
	return &table, nil
}

// CreateTable stores a new table definition, assigning it a unique id when
// none is set.
func (r *ConsulRegistry) CreateTable(ctx context.Context, table *data.TableDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.buildKey("tables", table.Identifier().String())
	pair, _, err := r.kv.Get(key, queryOptions(ctx))
	if err != nil {
		return err
	}
	if pair != nil {
		return fmt.Errorf("%w: %s", data.ErrTableExists, table.Identifier())
	}

	if table.ID == "" {
		table.ID = uuid.NewString()
	}

	raw, err := json.Marshal(table)
	if err != nil {
		return err
	}

	_, err = r.kv.Put(&api.KVPair{Key: key, Value: raw}, writeOptions(ctx))
	return err
}

// DropTable removes a stored table definition.
func (r *ConsulRegistry) DropTable(ctx context.Context, id data.Identifier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.buildKey("tables", id.String())
	pair, _, err := r.kv.Get(key, queryOptions(ctx))
	if err != nil {
		return err
	}
	if pair == nil {
		return fmt.Errorf("%w: %s", data.ErrTableNotFound, id)
	}

	_, err = r.kv.Delete(key, writeOptions(ctx))
	return err
}

// ListTables returns the identifiers of all tables stored directly under
// the namespace.
func (r *ConsulRegistry) ListTables(ctx context.Context, namespace data.Namespace) ([]data.Identifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pairs, _, err := r.kv.List(r.buildKey("tables", dottedKey(namespace))+".", queryOptions(ctx))
	if err != nil {
		return nil, err
	}

	var ids []data.Identifier
	for _, pair := range pairs {
		var table data.TableDefinition
		if err := json.Unmarshal(pair.Value, &table); err != nil {
			return nil, err
		}
		if !table.Namespace.Equal(namespace) {
			continue
		}
		ids = append(ids, table.Identifier())
	}

	return ids, nil
}

// sectionPrefix returns the full KV prefix for a registry section,
// including the trailing slash.
func (r *ConsulRegistry) sectionPrefix(section string) string {
	return strings.TrimSuffix(r.config.Prefix, "/") + "/" + section + "/"
}

// namespaceExists reports whether the namespace exists, either created
// explicitly or implied by a datasource or table beneath it.
func (r *ConsulRegistry) namespaceExists(ctx context.Context, prefix string) (bool, error) {
	pair, _, err := r.kv.Get(r.buildKey("namespaces", prefix), queryOptions(ctx))
	if err != nil {
		return false, err
	}
	if pair != nil {
		return true, nil
	}

	// A datasource's full namespace counts as a namespace too
	pair, _, err = r.kv.Get(r.buildKey("datasources", prefix), queryOptions(ctx))
	if err != nil {
		return false, err
	}
	if pair != nil {
		return true, nil
	}

	return r.hasChildren(ctx, prefix)
}

// hasChildren reports whether any entry lives beneath the prefix.
func (r *ConsulRegistry) hasChildren(ctx context.Context, prefix string) (bool, error) {
	for _, section := range []string{"namespaces", "datasources", "tables"} {
		keys, _, err := r.kv.Keys(r.sectionPrefix(section)+prefix+".", "", queryOptions(ctx))
		if err != nil {
			return false, err
		}
		if len(keys) > 0 {
			return true, nil
		}
	}
	return false, nil
}

func queryOptions(ctx context.Context) *api.QueryOptions {
	return (&api.QueryOptions{}).WithContext(ctx)
}

func writeOptions(ctx context.Context) *api.WriteOptions {
	return (&api.WriteOptions{}).WithContext(ctx)
}

// childSegment extracts the immediate child segment of prefix from a
// dotted key, if the key lives beneath it.
func childSegment(key, prefix string) (string, bool) {
	if prefix != "" {
		if !strings.HasPrefix(key, prefix+".") {
			return "", false
		}
		key = strings.TrimPrefix(key, prefix+".")
	}
	if key == "" {
		return "", false
	}
	if i := strings.IndexByte(key, '.'); i >= 0 {
		key = key[:i]
	}
	return key, true
}

var _ metacat.MetadataRegistry = (*ConsulRegistry)(nil)
