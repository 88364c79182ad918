package intent

// Tag identifies a classified action.
type Tag string

// Control tags.
const (
	Unknown            Tag = "UNKNOWN"
	NeedsClarification Tag = "NEEDS_CLARIFICATION"
	Help               Tag = "HELP"
)

// Action tags.
const (
	NodeStatus         Tag = "node_status"
	NodeHealth         Tag = "node_health"
	NodeEvents         Tag = "node_events"
	FilesystemHealth   Tag = "filesystem_health"
	FilesystemEvents   Tag = "filesystem_events"
	ClusterInfo        Tag = "cluster_info"
	APIVersion         Tag = "api_version"
	ListFilesystems    Tag = "list_filesystems"
	ShowFilesystem     Tag = "show_filesystem"
	ListFilesets       Tag = "list_filesets"
	ListStoragePools   Tag = "list_storage_pools"
	CreateFileset      Tag = "create_fileset"
	LinkFileset        Tag = "link_fileset"
	UnlinkFileset      Tag = "unlink_fileset"
	DeleteFileset      Tag = "delete_fileset"
	MountFilesystem    Tag = "mount_filesystem"
	UnmountFilesystem  Tag = "unmount_filesystem"
	ListQuotas         Tag = "list_quotas"
	SetQuota           Tag = "set_quota"
	DeleteQuota        Tag = "delete_quota"
	FilesetUsage       Tag = "fileset_usage"
	PerformanceMetrics Tag = "performance_metrics"
	NodeConfig         Tag = "node_config"
	ListSnapshots      Tag = "list_snapshots"
	CreateSnapshot     Tag = "create_snapshot"
	DeleteSnapshot     Tag = "delete_snapshot"
	StartNodes         Tag = "start_nodes"
	StopNodes          Tag = "stop_nodes"
	ListRemoteClusters Tag = "list_remote_clusters"
	ListNSDs           Tag = "list_nsds"
)

// Overview tags. Each is answered by several read-only calls.
const (
	HealthOverview        Tag = "health_overview"
	PerformanceOverview   Tag = "performance_overview"
	NodePerformance       Tag = "node_performance"
	FilesystemPerformance Tag = "filesystem_performance"
)

// TagInfo pairs a tag with a one-line description, used to brief the
// reasoning backend and to render help.
type TagInfo struct {
	Tag         Tag    `json:"intent"`
	Description string `json:"description"`
}

var vocabulary = []TagInfo{
	{Help, "the user asks what the assistant can do"},
	{NodeStatus, "status of cluster nodes"},
	{NodeHealth, "health state of nodes or of the cluster as a whole"},
	{NodeEvents, "recent node health events or alerts"},
	{FilesystemHealth, "health state of filesystems"},
	{FilesystemEvents, "recent filesystem health events"},
	{ClusterInfo, "cluster identity and membership"},
	{APIVersion, "management API version"},
	{ListFilesystems, "list all filesystems"},
	{ShowFilesystem, "details of one filesystem (param: filesystem)"},
	{ListFilesets, "list filesets (param: filesystem)"},
	{ListStoragePools, "list storage pools (param: filesystem)"},
	{CreateFileset, "create a fileset (params: filesystem, fileset)"},
	{LinkFileset, "link a fileset (params: filesystem, fileset, path)"},
	{UnlinkFileset, "unlink a fileset (params: filesystem, fileset)"},
	{DeleteFileset, "delete a fileset (params: filesystem, fileset)"},
	{MountFilesystem, "mount a filesystem (params: filesystem, nodes)"},
	{UnmountFilesystem, "unmount a filesystem (params: filesystem, nodes)"},
	{ListQuotas, "list quotas (params: filesystem, fileset)"},
	{SetQuota, "set a quota (params: filesystem, fileset, hard_limit, soft_limit)"},
	{DeleteQuota, "remove a quota (params: filesystem, fileset)"},
	{FilesetUsage, "capacity used (params: filesystem, fileset)"},
	{PerformanceMetrics, "iops, throughput or latency (params: metric, nodes)"},
	{NodeConfig, "node configuration (param: nodes)"},
	{ListSnapshots, "list snapshots (params: filesystem, fileset)"},
	{CreateSnapshot, "create a snapshot (params: name, filesystem, fileset)"},
	{DeleteSnapshot, "delete a snapshot (params: name, filesystem, fileset)"},
	{StartNodes, "start nodes (param: nodes)"},
	{StopNodes, "stop nodes (param: nodes)"},
	{ListRemoteClusters, "list remote clusters"},
	{ListNSDs, "list network shared disks"},
	{HealthOverview, "overall cluster health with detected issues"},
	{PerformanceOverview, "overall performance picture of the cluster"},
	{NodePerformance, "analyse node bottlenecks (param: nodes)"},
	{FilesystemPerformance, "analyse filesystem bottlenecks (param: filesystem)"},
}

var known = func() map[Tag]struct{} {
	m := make(map[Tag]struct{}, len(vocabulary)+2)
	for _, v := range vocabulary {
		m[v.Tag] = struct{}{}
	}
	m[Unknown] = struct{}{}
	m[NeedsClarification] = struct{}{}
	return m
}()

// Vocabulary returns every tag a classifier may produce, except the
// control tags Unknown and NeedsClarification.
func Vocabulary() []TagInfo {
	out := make([]TagInfo, len(vocabulary))
	copy(out, vocabulary)
	return out
}

// Known reports whether t belongs to the vocabulary.
func Known(t Tag) bool {
	_, ok := known[t]
	return ok
}
