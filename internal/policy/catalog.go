package policy

// Handler identifiers of the default catalog.
const (
	HandlerHealth      = "health"
	HandlerStorage     = "storage"
	HandlerQuota       = "quota"
	HandlerPerformance = "performance"
	HandlerAdmin       = "admin"
)

const (
	namePattern  = `^[A-Za-z0-9][A-Za-z0-9_.-]*$`
	limitPattern = `^[0-9]+[KMGTPkmgtp]?$`
)

var (
	argFilesystem    = ArgSpec{Name: "filesystem", Type: ArgString, Required: true, Pattern: namePattern, Description: "filesystem device name"}
	argFilesystemOpt = ArgSpec{Name: "filesystem", Type: ArgString, Pattern: namePattern, Description: "filesystem device name"}
	argFileset       = ArgSpec{Name: "fileset", Type: ArgString, Required: true, Pattern: namePattern, Description: "fileset name"}
	argFilesetOpt    = ArgSpec{Name: "fileset", Type: ArgString, Pattern: namePattern, Description: "fileset name"}
	argNodes         = ArgSpec{Name: "nodes", Type: ArgString, Required: true, Description: "node name, node class, or :all:"}
	argNodesOpt      = ArgSpec{Name: "nodes", Type: ArgString, Description: "node name, node class, or :all:"}
	argSnapshot      = ArgSpec{Name: "name", Type: ArgString, Required: true, Pattern: namePattern, Description: "snapshot name"}
)

// DefaultCatalog returns the handler and tool policy for a storage-scale
// cluster backend.
func DefaultCatalog() ([]HandlerDescriptor, []ToolDescriptor) {
	handlers := []HandlerDescriptor{
		{
			ID:          HandlerHealth,
			Description: "cluster, node and filesystem health",
			Personas:    []string{"viewer", "sre", "operator", "admin"},
			Tools: []string{
				"get_nodes_status", "get_node_health_states", "get_node_health_events",
				"get_filesystem_health_states", "get_filesystem_health_events",
				"list_clusters", "get_version",
			},
		},
		{
			ID:          HandlerStorage,
			Description: "filesystems, filesets and storage pools",
			Personas:    []string{"storage_admin", "admin"},
			Tools: []string{
				"list_filesystems", "get_filesystem", "list_filesets", "list_storage_pools",
				"create_fileset", "link_fileset", "mount_filesystem",
				"unlink_fileset", "delete_fileset", "unmount_filesystem",
			},
		},
		{
			ID:          HandlerQuota,
			Description: "fileset quotas",
			Personas:    []string{"storage_admin", "project_lead", "admin"},
			Tools:       []string{"list_quotas", "set_quota", "delete_quota"},
		},
		{
			ID:          HandlerPerformance,
			Description: "capacity and performance analysis",
			Personas:    []string{"viewer", "perf_engineer", "sre", "admin"},
			Tools:       []string{"get_fileset_usage", "query_perf_metrics", "get_nodes_config"},
		},
		{
			ID:          HandlerAdmin,
			Description: "snapshots, nodes and cluster administration",
			Personas:    []string{"cluster_admin", "admin"},
			Tools: []string{
				"list_snapshots", "list_remote_clusters", "list_nsds",
				"start_nodes", "create_snapshot", "delete_snapshot", "stop_nodes",
			},
		},
	}

	tools := []ToolDescriptor{
		{ID: "get_nodes_status", Tier: TierLow, Description: "status of cluster nodes", Args: []ArgSpec{argNodesOpt}},
		{ID: "get_node_health_states", Tier: TierLow, Description: "health states of nodes", Args: []ArgSpec{argNodesOpt}},
		{ID: "get_node_health_events", Tier: TierLow, Description: "recent node health events", Args: []ArgSpec{argNodesOpt}},
		{ID: "get_filesystem_health_states", Tier: TierLow, Description: "health states of filesystems", Args: []ArgSpec{argFilesystemOpt}},
		{ID: "get_filesystem_health_events", Tier: TierLow, Description: "recent filesystem health events", Args: []ArgSpec{argFilesystemOpt}},
		{ID: "list_clusters", Tier: TierLow, Description: "cluster identity and members"},
		{ID: "get_version", Tier: TierLow, Description: "management API version"},

		{ID: "list_filesystems", Tier: TierLow, Description: "list filesystems"},
		{ID: "get_filesystem", Tier: TierLow, Description: "filesystem details", Args: []ArgSpec{argFilesystem}},
		{ID: "list_filesets", Tier: TierLow, Description: "list filesets of a filesystem", Args: []ArgSpec{argFilesystem}},
		{ID: "list_storage_pools", Tier: TierLow, Description: "list storage pools of a filesystem", Args: []ArgSpec{argFilesystem}},
		{ID: "create_fileset", Tier: TierMedium, Description: "create a fileset", Args: []ArgSpec{
			argFilesystem, argFileset,
			{Name: "inode_space", Type: ArgString, Enum: []string{"new", "root"}, Description: "independent (new) or dependent (root) inode space"},
		}},
		{ID: "link_fileset", Tier: TierMedium, Description: "link a fileset at a junction path", Args: []ArgSpec{
			argFilesystem, argFileset,
			{Name: "path", Type: ArgString, Description: "junction path"},
		}},
		{ID: "mount_filesystem", Tier: TierMedium, Description: "mount a filesystem", Args: []ArgSpec{argFilesystem, argNodesOpt}},
		{ID: "unlink_fileset", Tier: TierHigh, Description: "unlink a fileset", Args: []ArgSpec{argFilesystem, argFileset}},
		{ID: "delete_fileset", Tier: TierHigh, Description: "delete a fileset and its data", Args: []ArgSpec{argFilesystem, argFileset}},
		{ID: "unmount_filesystem", Tier: TierHigh, Description: "unmount a filesystem", Args: []ArgSpec{argFilesystem, argNodesOpt}},

		{ID: "list_quotas", Tier: TierLow, Description: "list quotas of a filesystem", Args: []ArgSpec{argFilesystem, argFilesetOpt}},
		{ID: "set_quota", Tier: TierMedium, Description: "set a fileset quota", Args: []ArgSpec{
			argFilesystem, argFileset,
			{Name: "hard_limit", Type: ArgString, Required: true, Pattern: limitPattern, Description: "hard block limit, e.g. 10T"},
			{Name: "soft_limit", Type: ArgString, Pattern: limitPattern, Description: "soft block limit"},
		}},
		{ID: "delete_quota", Tier: TierHigh, Description: "remove a fileset quota", Args: []ArgSpec{argFilesystem, argFileset}},

		{ID: "get_fileset_usage", Tier: TierLow, Description: "capacity used by filesets", Args: []ArgSpec{argFilesystem, argFilesetOpt}},
		{ID: "query_perf_metrics", Tier: TierLow, Description: "performance counters", Args: []ArgSpec{
			{Name: "metric", Type: ArgString, Enum: []string{"iops", "throughput", "latency"}},
			argNodesOpt,
		}},
		{ID: "get_nodes_config", Tier: TierLow, Description: "node configuration", Args: []ArgSpec{argNodesOpt}},

		{ID: "list_snapshots", Tier: TierLow, Description: "list snapshots of a filesystem", Args: []ArgSpec{argFilesystem, argFilesetOpt}},
		{ID: "list_remote_clusters", Tier: TierLow, Description: "list remote clusters"},
		{ID: "list_nsds", Tier: TierLow, Description: "list network shared disks"},
		{ID: "start_nodes", Tier: TierMedium, Description: "start the daemon on nodes", Args: []ArgSpec{argNodes}},
		{ID: "create_snapshot", Tier: TierHigh, Description: "create a snapshot", Args: []ArgSpec{argSnapshot, argFilesystem, argFilesetOpt}},
		{ID: "delete_snapshot", Tier: TierHigh, Description: "delete a snapshot", Args: []ArgSpec{argSnapshot, argFilesystem, argFilesetOpt}},
		{ID: "stop_nodes", Tier: TierHigh, Description: "stop the daemon on nodes", Args: []ArgSpec{argNodes}},
	}

	return handlers, tools
}

// Default builds a Registry from DefaultCatalog.
func Default() (*Registry, error) {
	return NewRegistry(DefaultCatalog())
}
