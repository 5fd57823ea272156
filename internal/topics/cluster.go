package topics

import (
	"fmt"
	"math"
	"reflect"

	"radar/internal/core"
	"radar/internal/logger"

	"github.com/humilityai/hdbscan"
)

// Clusterer assigns documents to density-based topics over their embeddings.
type Clusterer struct {
	MinClusterSize int
}

// NewClusterer creates a clusterer with the given minimum cluster size.
func NewClusterer(minClusterSize int) *Clusterer {
	if minClusterSize < 2 {
		minClusterSize = 2
	}
	return &Clusterer{MinClusterSize: minClusterSize}
}

// cosineDistance computes cosine distance between two vectors. Euclidean
// distance degrades badly on high-dimensional embeddings; cosine does not.
func cosineDistance(x1, x2 []float64) float64 {
	if len(x1) != len(x2) {
		return 1.0
	}

	var dotProduct, mag1, mag2 float64
	for i := range x1 {
		dotProduct += x1[i] * x2[i]
		mag1 += x1[i] * x1[i]
		mag2 += x2[i] * x2[i]
	}
	if mag1 == 0 || mag2 == 0 {
		return 1.0
	}

	similarity := dotProduct / (math.Sqrt(mag1) * math.Sqrt(mag2))
	if similarity > 1.0 {
		similarity = 1.0
	} else if similarity < -1.0 {
		similarity = -1.0
	}
	return 1.0 - similarity
}

// Assign clusters the vectors and returns one topic id per vector, in input
// order. Vectors no cluster claims get core.TopicOutlier.
func (c *Clusterer) Assign(vectors [][]float64) ([]int, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no vectors to cluster")
	}

	clustering, err := hdbscan.NewClustering(vectors, c.MinClusterSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create clustering: %w", err)
	}
	clustering = clustering.OutlierDetection()

	if err := clustering.Run(cosineDistance, hdbscan.VarianceScore, true); err != nil {
		return nil, fmt.Errorf("clustering failed: %w", err)
	}

	assignments := make([]int, len(vectors))
	for i := range assignments {
		assignments[i] = core.TopicOutlier
	}

	clusters := extractClusterData(clustering)
	for clusterID, cluster := range clusters {
		for _, pointIdx := range cluster.Points {
			if pointIdx >= 0 && pointIdx < len(assignments) {
				assignments[pointIdx] = clusterID
			}
		}
	}

	outliers := 0
	for _, a := range assignments {
		if a == core.TopicOutlier {
			outliers++
		}
	}
	logger.Info("clustering done",
		"documents", len(vectors), "clusters", len(clusters), "outliers", outliers)
	return assignments, nil
}

// clusterData holds the fields extracted from one internal cluster.
type clusterData struct {
	Centroid []float64
	Points   []int
}

// extractClusterData reads cluster membership out of the clustering result.
// The library keeps point assignments on an unexported cluster type, so the
// fields are read through reflection.
func extractClusterData(clustering *hdbscan.Clustering) []clusterData {
	v := reflect.ValueOf(clustering).Elem()
	clustersField := v.FieldByName("Clusters")
	if !clustersField.IsValid() {
		logger.Warn("could not access clustering results")
		return nil
	}

	result := make([]clusterData, clustersField.Len())
	for i := 0; i < clustersField.Len(); i++ {
		clusterPtr := clustersField.Index(i)
		if clusterPtr.Kind() == reflect.Ptr {
			clusterPtr = clusterPtr.Elem()
		}

		centroidField := clusterPtr.FieldByName("Centroid")
		if centroidField.IsValid() && centroidField.Kind() == reflect.Slice {
			centroid := make([]float64, centroidField.Len())
			for j := 0; j < centroidField.Len(); j++ {
				centroid[j] = centroidField.Index(j).Float()
			}
			result[i].Centroid = centroid
		}

		pointsField := clusterPtr.FieldByName("Points")
		if pointsField.IsValid() && pointsField.Kind() == reflect.Slice {
			points := make([]int, pointsField.Len())
			for j := 0; j < pointsField.Len(); j++ {
				points[j] = int(pointsField.Index(j).Int())
			}
			result[i].Points = points
		}
	}
	return result
}
