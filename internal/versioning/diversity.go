package versioning

import (
	"context"
	"encoding/json"
	"math"
	"strings"

	"github.com/reelforge/viralcut/internal/backend"
	"github.com/reelforge/viralcut/internal/domain"
)

const defaultDiversityThreshold = 0.65

// DiversityChecker computes the max similarity of a candidate blob
// against a set of recent leaves and exposes the accept/tag threshold.
type DiversityChecker interface {
	MaxSimilarity(ctx context.Context, candidate []byte, blobKind domain.BlobKind, leaves []domain.VersionNode) (float64, error)
	Threshold() float64
}

// EmbeddingDiversity implements the spec.md 4.6 diversity gate: a
// hybrid of cosine similarity over backend.Embed mean embeddings
// (50%), sequence-match ratio on normalized text (30%), and line-diff
// ratio (20%). be may be nil, in which case the embedding term is
// dropped and the remaining two terms are renormalized.
type EmbeddingDiversity struct {
	be        backend.Backend
	threshold float64
	leafText  map[string]string // node id -> resolved comparison text, populated by caller via Snapshot history reads
}

// NewEmbeddingDiversity constructs a checker. threshold<=0 uses the
// spec default of 0.65.
func NewEmbeddingDiversity(be backend.Backend, threshold float64, leafText map[string]string) *EmbeddingDiversity {
	if threshold <= 0 {
		threshold = defaultDiversityThreshold
	}
	return &EmbeddingDiversity{be: be, threshold: threshold, leafText: leafText}
}

func (d *EmbeddingDiversity) Threshold() float64 { return d.threshold }

func (d *EmbeddingDiversity) MaxSimilarity(ctx context.Context, candidate []byte, blobKind domain.BlobKind, leaves []domain.VersionNode) (float64, error) {
	candidateText, err := extractComparisonText(candidate, blobKind)
	if err != nil || candidateText == "" {
		return 0, nil
	}

	var candidateEmbed []float64
	if d.be != nil {
		if emb, err := d.be.Embed(ctx, []string{candidateText}); err == nil && len(emb) > 0 {
			candidateEmbed = emb[0]
		}
	}

	var maxSim float64
	for _, leaf := range leaves {
		leafText := d.leafText[leaf.ID]
		if leafText == "" {
			continue
		}
		sim := d.combinedSimilarity(ctx, candidateText, candidateEmbed, leafText)
		if sim > maxSim {
			maxSim = sim
		}
	}
	return maxSim, nil
}

func (d *EmbeddingDiversity) combinedSimilarity(ctx context.Context, candidateText string, candidateEmbed []float64, leafText string) float64 {
	seqRatio := sequenceMatchRatio(normalizeForDiff(candidateText), normalizeForDiff(leafText))
	lineRatio := lineDiffRatio(candidateText, leafText)

	if d.be == nil || candidateEmbed == nil {
		// renormalize 0.3/0.2 -> 0.6/0.4 when no embedding is available
		return 0.6*seqRatio + 0.4*lineRatio
	}
	leafEmbed, err := d.be.Embed(ctx, []string{leafText})
	if err != nil || len(leafEmbed) == 0 {
		return 0.6*seqRatio + 0.4*lineRatio
	}
	cos := cosineSimilarity(candidateEmbed, leafEmbed[0])
	return 0.5*cos + 0.3*seqRatio + 0.2*lineRatio
}

// extractComparisonText pulls a flat text blob out of a serialized
// RewrittenTimeline (or Timeline) for similarity comparison; other blob
// kinds (CutPlan) have no natural "text" and are skipped by the gate.
func extractComparisonText(raw []byte, kind domain.BlobKind) (string, error) {
	switch kind {
	case domain.BlobRewrittenTimeline:
		var rt domain.RewrittenTimeline
		if err := json.Unmarshal(raw, &rt); err != nil {
			return "", err
		}
		var sb strings.Builder
		for _, s := range rt.Segments {
			sb.WriteString(s.Text)
			sb.WriteString("\n")
		}
		return sb.String(), nil
	case domain.BlobTimeline:
		var tl domain.Timeline
		if err := json.Unmarshal(raw, &tl); err != nil {
			return "", err
		}
		var sb strings.Builder
		for _, s := range tl.Segments {
			sb.WriteString(s.Text)
			sb.WriteString("\n")
		}
		return sb.String(), nil
	default:
		return "", nil
	}
}

func normalizeForDiff(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// sequenceMatchRatio is a Ratcliff/Obershelp-style ratio: twice the
// length of the longest common subsequence of words, over the summed
// word-count of both inputs.
func sequenceMatchRatio(a, b string) float64 {
	aw := strings.Fields(a)
	bw := strings.Fields(b)
	if len(aw) == 0 && len(bw) == 0 {
		return 1
	}
	lcs := longestCommonSubsequenceLen(aw, bw)
	return 2 * float64(lcs) / float64(len(aw)+len(bw))
}

func longestCommonSubsequenceLen(a, b []string) int {
	dp := make([][]int, len(a)+1)
	for i := range dp {
		dp[i] = make([]int, len(b)+1)
	}
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else if dp[i-1][j] >= dp[i][j-1] {
				dp[i][j] = dp[i-1][j]
			} else {
				dp[i][j] = dp[i][j-1]
			}
		}
	}
	return dp[len(a)][len(b)]
}

// lineDiffRatio is the fraction of shared lines between a and b (by
// exact line match), a cheap proxy for a unified-diff ratio.
func lineDiffRatio(a, b string) float64 {
	al := strings.Split(strings.TrimSpace(a), "\n")
	bl := strings.Split(strings.TrimSpace(b), "\n")
	if len(al) == 0 && len(bl) == 0 {
		return 1
	}
	bSet := map[string]int{}
	for _, l := range bl {
		bSet[l]++
	}
	shared := 0
	for _, l := range al {
		if bSet[l] > 0 {
			shared++
			bSet[l]--
		}
	}
	total := len(al) + len(bl)
	if total == 0 {
		return 1
	}
	return 2 * float64(shared) / float64(total)
}

func cosineSimilarity(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
