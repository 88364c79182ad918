package intent

import "regexp"

func rx(expr string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + expr)
}

const (
	tok  = `([A-Za-z0-9][\w.-]*)`
	size = `(\d+[KMGTPkmgtp]?)(?:i?[Bb])?\b`
)

var (
	exFilesystem = []Extractor{
		{Param: "filesystem", Pattern: rx(`\b(?:filesystem|file\s+system|fs|device)\s+` + tok)},
		{Param: "filesystem", Pattern: rx(`\b(?:in|on|of|for|from)\s+(?:the\s+)?` + tok)},
	}
	exMountTarget = []Extractor{
		{Param: "filesystem", Pattern: rx(`\bu?n?mount\s+(?:the\s+)?(?:filesystem\s+|fs\s+)?` + tok)},
	}
	exFileset = []Extractor{
		{Param: "fileset", Pattern: rx(`\bfileset\s+(?:named\s+|called\s+)?` + tok)},
	}
	exNodes = []Extractor{
		{Param: "nodes", Pattern: rx(`\b(?:all|every)\s+nodes\b`), Value: ":all:"},
		{Param: "nodes", Pattern: rx(`\bnodes?\s+(?:named\s+)?` + tok)},
	}
	exSnapshot = []Extractor{
		{Param: "name", Pattern: rx(`\bsnapshot\s+(?:named\s+|called\s+)?` + tok)},
		{Param: "name", Pattern: rx(`\b(?:named|called)\s+` + tok)},
	}
	exLimits = []Extractor{
		{Param: "hard_limit", Pattern: rx(`\bhard(?:\s+limit)?\s+(?:of\s+|to\s+)?` + size)},
		{Param: "hard_limit", Pattern: rx(`\bto\s+` + size)},
		{Param: "soft_limit", Pattern: rx(`\bsoft(?:\s+limit)?\s+(?:of\s+|to\s+)?` + size)},
	}
	exMetric = []Extractor{
		{Param: "metric", Pattern: rx(`\biops\b`), Value: "iops"},
		{Param: "metric", Pattern: rx(`\b(?:throughput|bandwidth)\b`), Value: "throughput"},
		{Param: "metric", Pattern: rx(`\blatency\b`), Value: "latency"},
	}
	exInodeSpace = []Extractor{
		{Param: "inode_space", Pattern: rx(`\bindependent\b`), Value: "new"},
		{Param: "inode_space", Pattern: rx(`\bdependent\b`), Value: "root"},
	}
	exPath = []Extractor{
		{Param: "path", Pattern: rx(`\b(?:at|to|path|junction)\s+(/\S+)`)},
	}
)

func join(groups ...[]Extractor) []Extractor {
	var out []Extractor
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// Domain keyword rules sit at the end of the table with low confidence so
// that vague requests surface as ambiguous instead of unknown.
const keywordConfidence = 0.4

// DefaultRules returns the rule table for storage-scale requests.
// Destructive verbs are listed before the listing rules they overlap with.
func DefaultRules() []Rule {
	return []Rule{
		{Tag: Help, Pattern: rx(`^\s*(?:help|\?)\s*[.!?]*\s*$|\b(?:what can you do|how do i|capabilities|commands)\b`), Confidence: 1},

		{Tag: CreateSnapshot, Pattern: rx(`\b(?:create|take|make)\b.*\bsnapshot\b`), Extract: join(exSnapshot, exFilesystem, exFileset)},
		{Tag: DeleteSnapshot, Pattern: rx(`\b(?:delete|remove|drop|destroy)\b.*\bsnapshot\b`), Extract: join(exSnapshot, exFilesystem, exFileset)},
		{Tag: ListSnapshots, Pattern: rx(`\bsnapshots?\b`), Confidence: 0.8, Extract: join(exFilesystem, exFileset)},

		{Tag: DeleteQuota, Pattern: rx(`\b(?:delete|remove|clear|drop)\b.*\bquotas?\b`), Extract: join(exFileset, exFilesystem)},
		{Tag: SetQuota, Pattern: rx(`\b(?:set|change|update|raise|increase|lower|reduce)\b.*\bquotas?\b`), Extract: join(exFileset, exFilesystem, exLimits)},
		{Tag: ListQuotas, Pattern: rx(`\bquotas?\b`), Confidence: 0.8, Extract: join(exFilesystem, exFileset)},

		{Tag: DeleteFileset, Pattern: rx(`\b(?:delete|remove|destroy|drop)\b.*\bfileset\b`), Extract: join(exFileset, exFilesystem)},
		{Tag: UnlinkFileset, Pattern: rx(`\bunlink\b.*\bfileset\b`), Extract: join(exFileset, exFilesystem)},
		{Tag: LinkFileset, Pattern: rx(`\blink\b.*\bfileset\b`), Extract: join(exFileset, exFilesystem, exPath)},
		{Tag: CreateFileset, Pattern: rx(`\b(?:create|add|make)\b.*\bfileset\b`), Extract: join(exFileset, exFilesystem, exInodeSpace)},
		{Tag: ListFilesets, Pattern: rx(`\bfilesets\b`), Confidence: 0.85, Extract: exFilesystem},

		{Tag: UnmountFilesystem, Pattern: rx(`\bu(?:n)?mount\b`), Extract: join(exMountTarget, exFilesystem, exNodes)},
		{Tag: MountFilesystem, Pattern: rx(`\bmount\b`), Extract: join(exMountTarget, exFilesystem, exNodes)},

		{Tag: ListStoragePools, Pattern: rx(`\b(?:storage\s+)?pools?\b`), Confidence: 0.85, Extract: exFilesystem},

		{Tag: NodePerformance, Pattern: rx(`\b(?:analy[sz]\w*|bottlenecks?|slow)\b.*\bnodes?\b|\bnodes?\b.*\b(?:performance|bottlenecks?|slow)\b`), Extract: exNodes},
		{Tag: FilesystemPerformance, Pattern: rx(`\b(?:analy[sz]\w*|bottlenecks?|slow)\b.*\b(?:filesystems?|fs)\b|\b(?:filesystems?|fs)\b.*\b(?:performance|bottlenecks?|slow)\b`), Extract: exFilesystem},

		{Tag: FilesystemEvents, Pattern: rx(`\b(?:filesystems?|fs)\b.*\b(?:events?|alerts?)\b|\b(?:events?|alerts?)\b.*\b(?:filesystems?|fs)\b`), Extract: exFilesystem},
		{Tag: FilesystemHealth, Pattern: rx(`\b(?:filesystems?|fs)\b.*\b(?:health|healthy|unhealthy|state)\b|\b(?:health|state)\b.*\bfilesystems?\b`), Extract: exFilesystem},
		{Tag: ListFilesystems, Pattern: rx(`\b(?:list|show|display|what|which|get)\b.*\bfilesystems\b|^\s*filesystems\s*[?.!]*\s*$`)},
		{Tag: ShowFilesystem, Pattern: rx(`\b(?:describe|details?|show|info(?:rmation)?|about)\b.*\bfilesystem\b`), Confidence: 0.85, Extract: exFilesystem},

		{Tag: StopNodes, Pattern: rx(`\b(?:stop|shutdown|shut\s+down)\b.*\bnodes?\b`), Extract: exNodes},
		{Tag: StartNodes, Pattern: rx(`\b(?:start|restart|bring\s+up)\b.*\bnodes?\b`), Extract: exNodes},
		{Tag: NodeConfig, Pattern: rx(`\bnodes?\b.*\b(?:config|configuration|settings)\b`), Extract: exNodes},
		{Tag: NodeEvents, Pattern: rx(`\bnodes?\b.*\b(?:events?|alerts?)\b|\b(?:events?|alerts?)\b.*\bnodes?\b`), Extract: exNodes},
		{Tag: NodeHealth, Pattern: rx(`\bnodes?\b.*\b(?:health|healthy|unhealthy|state)\b|\b(?:health|state)\b.*\bnodes?\b`), Extract: exNodes},
		{Tag: NodeStatus, Pattern: rx(`\bnodes?\b.*\bstatus\b|\bstatus\b.*\bnodes?\b|\b(?:list|show)\b.*\bnodes\b`), Extract: exNodes},

		{Tag: PerformanceOverview, Pattern: rx(`\bperformance\s+(?:overview|summary|report)\b|\boverall\s+performance\b|^\s*(?:analy[sz]e|check)\s+(?:the\s+)?performance\s*[?.!]*\s*$`)},
		{Tag: HealthOverview, Pattern: rx(`\bhealth\s+(?:overview|summary|report|check)\b|\boverall\s+health\b|\bcluster\b.*\bhealth(?:y)?\b|\bhealth(?:y)?\b.*\bcluster\b`)},

		{Tag: ListRemoteClusters, Pattern: rx(`\bremote\s+clusters?\b`)},
		{Tag: ListNSDs, Pattern: rx(`\bnsds?\b|\bnetwork\s+shared\s+disks?\b`)},
		{Tag: ClusterInfo, Pattern: rx(`\bcluster\b.*\b(?:info|details|members|overview)\b|\b(?:list|show)\b.*\bclusters\b`)},
		{Tag: APIVersion, Pattern: rx(`\bversion\b`)},

		{Tag: FilesetUsage, Pattern: rx(`\b(?:usage|capacity|space|how\s+much)\b`), Confidence: 0.8, Extract: join(exFilesystem, exFileset)},
		{Tag: PerformanceMetrics, Pattern: rx(`\b(?:iops|throughput|bandwidth|latency|performance|bottleneck|slow)\b`), Confidence: 0.8, Extract: join(exMetric, exNodes)},

		{Tag: NodeHealth, Pattern: rx(`\b(?:health|healthy|unhealthy|monitor\w*|diagnos\w*|problems?|issues?|wrong)\b`), Confidence: 0.6},
		{Tag: ClusterInfo, Pattern: rx(`\b(?:cluster|config\w*|settings?)\b`), Confidence: keywordConfidence},
		{Tag: ListFilesystems, Pattern: rx(`\b(?:filesystems?|filesets?|storage)\b`), Confidence: keywordConfidence},
	}
}

// NewDefaultPatternClassifier is NewPatternClassifier over DefaultRules.
func NewDefaultPatternClassifier() *PatternClassifier {
	p, err := NewPatternClassifier(DefaultRules())
	if err != nil {
		panic(err)
	}
	return p
}
