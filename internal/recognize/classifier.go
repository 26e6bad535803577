package recognize

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/coder/hnsw"
)

const (
	graphFile  = "classifier.hnsw"
	nodesFile  = "classifier.hnsw.nodes"
	labelsFile = "labels.json"

	hnswMaxNeighbors = 16
)

// TrainingSample is one enrollment vector with its owner.
type TrainingSample struct {
	PersonID string
	Name     string
	Vector   []float32
}

// Prediction is the nearest-neighbor verdict for one face. Distance is
// cosine distance: lower means more similar.
type Prediction struct {
	LabelID  int64
	Distance float64
}

// Classifier is a nearest-neighbor face classifier over an HNSW graph.
// Each graph node is one enrollment sample; nodeLabels maps the node key
// back to the label id of the person it belongs to.
type Classifier struct {
	mu         sync.RWMutex
	graph      *hnsw.Graph[int64]
	savedGraph *hnsw.SavedGraph[int64]
	nodeLabels map[int64]int64
	neighbors  int
}

// NewClassifier creates an untrained classifier. neighbors is the number
// of nearest samples consulted per prediction.
func NewClassifier(neighbors int) *Classifier {
	if neighbors < 1 {
		neighbors = 1
	}
	return &Classifier{
		nodeLabels: make(map[int64]int64),
		neighbors:  neighbors,
	}
}

// Train rebuilds the graph from enrollment samples and returns the label
// directory produced by the run. Label ids are assigned per person in
// sorted person-id order so retraining with the same roster is stable.
func (c *Classifier) Train(samples []TrainingSample) (*LabelDirectory, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	people := make(map[string]string)
	for _, s := range samples {
		people[s.PersonID] = s.Name
	}
	personIDs := make([]string, 0, len(people))
	for id := range people {
		personIDs = append(personIDs, id)
	}
	sort.Strings(personIDs)

	labels := NewLabelDirectory()
	labelOf := make(map[string]int64, len(personIDs))
	for i, id := range personIDs {
		labelID := int64(i)
		labelOf[id] = labelID
		labels.Bind(labelID, id, people[id])
	}

	g := hnsw.NewGraph[int64]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.Distance = hnsw.CosineDistance

	nodeLabels := make(map[int64]int64, len(samples))
	for i, s := range samples {
		if len(s.Vector) == 0 {
			continue
		}
		nodeID := int64(i)
		g.Add(hnsw.MakeNode(nodeID, s.Vector))
		nodeLabels[nodeID] = labelOf[s.PersonID]
	}

	c.mu.Lock()
	c.graph = g
	c.savedGraph = nil
	c.nodeLabels = nodeLabels
	c.mu.Unlock()

	return labels, nil
}

// Predict returns the best-matching label for a patch vector. The label
// with the most votes among the nearest neighbors wins; its distance is
// the closest distance of any voting sample.
func (c *Classifier) Predict(vector []float32) (Prediction, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.graph == nil && c.savedGraph == nil {
		return Prediction{}, ErrModelNotReady
	}

	var nodes []hnsw.Node[int64]
	if c.savedGraph != nil {
		nodes = c.savedGraph.Search(vector, c.neighbors)
	} else {
		nodes = c.graph.Search(vector, c.neighbors)
	}
	if len(nodes) == 0 {
		return Prediction{}, ErrModelNotReady
	}

	votes := make(map[int64]int)
	closest := make(map[int64]float64)
	for _, n := range nodes {
		label, ok := c.nodeLabels[n.Key]
		if !ok {
			continue
		}
		d := cosineDistance(vector, n.Value)
		votes[label]++
		if prev, seen := closest[label]; !seen || d < prev {
			closest[label] = d
		}
	}
	if len(votes) == 0 {
		return Prediction{}, ErrModelNotReady
	}

	best := Prediction{Distance: math.Inf(1)}
	bestVotes := -1
	for label, v := range votes {
		d := closest[label]
		if v > bestVotes || (v == bestVotes && d < best.Distance) {
			best = Prediction{LabelID: label, Distance: d}
			bestVotes = v
		}
	}
	return best, nil
}

// SampleCount returns the number of indexed enrollment samples.
func (c *Classifier) SampleCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.nodeLabels)
}

// Save persists the trained graph and its node-to-label map into dir.
func (c *Classifier) Save(dir string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.graph == nil {
		return ErrModelNotReady
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create models directory: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, graphFile))
	if err != nil {
		return fmt.Errorf("create classifier file: %w", err)
	}
	defer f.Close()
	if err := c.graph.Export(f); err != nil {
		return fmt.Errorf("export classifier graph: %w", err)
	}

	data, err := json.Marshal(c.nodeLabels)
	if err != nil {
		return fmt.Errorf("marshal node labels: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, nodesFile), data, 0o644); err != nil {
		return fmt.Errorf("write node labels: %w", err)
	}
	return nil
}

// Load reads a classifier saved by Save. A missing artifact is reported
// as ErrModelMissing so callers can tell setup failures apart.
func (c *Classifier) Load(dir string) error {
	graphPath := filepath.Join(dir, graphFile)
	if _, err := os.Stat(graphPath); os.IsNotExist(err) {
		return ErrModelMissing
	}

	saved, err := hnsw.LoadSavedGraph[int64](graphPath)
	if err != nil {
		return fmt.Errorf("load classifier graph: %w", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, nodesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrModelMissing
		}
		return fmt.Errorf("read node labels: %w", err)
	}
	var nodeLabels map[int64]int64
	if err := json.Unmarshal(data, &nodeLabels); err != nil {
		return fmt.Errorf("parse node labels: %w", err)
	}

	c.mu.Lock()
	c.graph = nil
	c.savedGraph = saved
	c.nodeLabels = nodeLabels
	c.mu.Unlock()
	return nil
}

// LabelsPath returns the label directory path inside a models dir.
func LabelsPath(dir string) string {
	return filepath.Join(dir, labelsFile)
}

// cosineDistance computes 1 - cosine similarity. Zero vectors are at
// maximal distance from everything.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return 1
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
