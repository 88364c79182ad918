package router

import "github.com/flemzord/scalegate/internal/intent"

// Binding maps an intent to a tool. Defaults fill arguments the intent did
// not supply. A binding with Steps is an overview instead: each step is a
// LOW tool called in turn, titled by Title, and Flag lists the entity
// statuses its summary reports.
type Binding struct {
	Tool     string
	Defaults map[string]any

	Title string
	Steps []Step
	Flag  []string
}

var (
	allNodes = map[string]any{"nodes": ":all:"}

	unhealthy   = []string{"CRITICAL", "ERROR", "UNHEALTHY", "DEGRADED", "FAILED"}
	bottlenecks = []string{"CRITICAL", "ERROR", "WARNING"}
)

// DefaultTable binds every action tag of the intent vocabulary to a tool
// of the default policy catalog.
func DefaultTable() map[intent.Tag]Binding {
	return map[intent.Tag]Binding{
		intent.NodeStatus:       {Tool: "get_nodes_status", Defaults: allNodes},
		intent.NodeHealth:       {Tool: "get_node_health_states", Defaults: allNodes},
		intent.NodeEvents:       {Tool: "get_node_health_events", Defaults: allNodes},
		intent.FilesystemHealth: {Tool: "get_filesystem_health_states"},
		intent.FilesystemEvents: {Tool: "get_filesystem_health_events"},
		intent.ClusterInfo:      {Tool: "list_clusters"},
		intent.APIVersion:       {Tool: "get_version"},

		intent.ListFilesystems:   {Tool: "list_filesystems"},
		intent.ShowFilesystem:    {Tool: "get_filesystem"},
		intent.ListFilesets:      {Tool: "list_filesets"},
		intent.ListStoragePools:  {Tool: "list_storage_pools"},
		intent.CreateFileset:     {Tool: "create_fileset"},
		intent.LinkFileset:       {Tool: "link_fileset"},
		intent.UnlinkFileset:     {Tool: "unlink_fileset"},
		intent.DeleteFileset:     {Tool: "delete_fileset"},
		intent.MountFilesystem:   {Tool: "mount_filesystem", Defaults: allNodes},
		intent.UnmountFilesystem: {Tool: "unmount_filesystem", Defaults: allNodes},

		intent.ListQuotas:  {Tool: "list_quotas"},
		intent.SetQuota:    {Tool: "set_quota"},
		intent.DeleteQuota: {Tool: "delete_quota"},

		intent.FilesetUsage:       {Tool: "get_fileset_usage"},
		intent.PerformanceMetrics: {Tool: "query_perf_metrics", Defaults: allNodes},
		intent.NodeConfig:         {Tool: "get_nodes_config", Defaults: allNodes},

		intent.ListSnapshots:      {Tool: "list_snapshots"},
		intent.CreateSnapshot:     {Tool: "create_snapshot"},
		intent.DeleteSnapshot:     {Tool: "delete_snapshot"},
		intent.StartNodes:         {Tool: "start_nodes"},
		intent.StopNodes:          {Tool: "stop_nodes"},
		intent.ListRemoteClusters: {Tool: "list_remote_clusters"},
		intent.ListNSDs:           {Tool: "list_nsds"},

		intent.HealthOverview: {
			Title: "Cluster health overview",
			Flag:  unhealthy,
			Steps: []Step{
				{Section: "Node status", Tool: "get_nodes_status"},
				{Section: "Node health", Tool: "get_node_health_states", Defaults: allNodes},
				{Section: "Filesystem health", Tool: "get_filesystem_health_states"},
			},
		},
		intent.PerformanceOverview: {
			Title: "Performance overview",
			Flag:  unhealthy,
			Steps: []Step{
				{Section: "Node status", Tool: "get_nodes_status"},
				{Section: "Node health", Tool: "get_node_health_states", Defaults: allNodes},
				{Section: "Node configuration", Tool: "get_nodes_config", Defaults: allNodes},
			},
		},
		intent.NodePerformance: {
			Title: "Node performance analysis",
			Flag:  unhealthy,
			Steps: []Step{
				{Section: "Node status", Tool: "get_nodes_status"},
				{Section: "Health states", Tool: "get_node_health_states", Defaults: allNodes},
				{Section: "Recent events", Tool: "get_node_health_events", Defaults: allNodes},
			},
		},
		intent.FilesystemPerformance: {
			Title: "Filesystem performance analysis",
			Flag:  bottlenecks,
			Steps: []Step{
				{Section: "Details", Tool: "get_filesystem"},
				{Section: "Health states", Tool: "get_filesystem_health_states"},
				{Section: "Storage pools", Tool: "list_storage_pools"},
			},
		},
	}
}
