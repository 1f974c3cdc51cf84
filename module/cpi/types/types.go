package types

import (
	"sort"
	"sync"
)

// ArtifactType names a remote artifact collection of a package
type ArtifactType string

const (
	IntegrationFlow ArtifactType = "IntegrationDesigntimeArtifacts"
	ValueMapping    ArtifactType = "ValueMappingDesigntimeArtifacts"
)

// ArtifactTypes lists every collection that is synchronized for a package
var ArtifactTypes = []ArtifactType{IntegrationFlow, ValueMapping}

// CatalogEntry is one package as reported by the package listing
type CatalogEntry struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
	Mode string `json:"Mode,omitempty"`
}

// ArtifactDescriptor is one artifact owned by a package
type ArtifactDescriptor struct {
	ID      string       `json:"Id"`
	Name    string       `json:"Name"`
	Version string       `json:"Version,omitempty"`
	Type    ArtifactType `json:"-"`
}

// WorkingSet is the sorted list of package ids selected for a run
type WorkingSet []string

type Status string

const (
	StatusSuccess Status = "Success"
	StatusSkip    Status = "Skipped"
	StatusFail    Status = "Failed"
)

// FileStat records the outcome of one artifact
type FileStat struct {
	Package  string
	Artifact string
	Type     ArtifactType
	Status   Status
	Size     string
	Path     string
	Error    string
}

// TransferStats collects FileStats from concurrent tasks
type TransferStats struct {
	mu        sync.Mutex
	FileStats []FileStat
}

func (s *TransferStats) Add(stat FileStat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FileStats = append(s.FileStats, stat)
}

// Sorted returns a copy of the stats ordered by package and artifact
func (s *TransferStats) Sorted() []FileStat {
	s.mu.Lock()
	out := make([]FileStat, len(s.FileStats))
	copy(out, s.FileStats)
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Package != out[j].Package {
			return out[i].Package < out[j].Package
		}
		return out[i].Artifact < out[j].Artifact
	})
	return out
}

// Count returns the number of stats with the given status
func (s *TransferStats) Count(status Status) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, st := range s.FileStats {
		if st.Status == status {
			n++
		}
	}
	return n
}
