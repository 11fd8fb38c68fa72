package retrieve

import (
	"testing"

	"go-llama/internal/searchtypes"
)

func withScores(id string, dense, sparse float64) searchtypes.Candidate {
	return searchtypes.Candidate{UserID: id, DenseScore: ptrOf(dense), SparseScore: ptrOf(sparse)}
}

func TestFuseDBSF_OrdersByBlendedZScore(t *testing.T) {
	candidates := []searchtypes.Candidate{
		withScores("u1", 0.9, 0.1),
		withScores("u2", 0.1, 0.9),
		withScores("u3", 0.5, 0.5),
	}
	out := fuseDBSF(candidates, 0.2)
	if len(out) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(out))
	}
	// alpha=0.2 favours sparse (0.8 weight), so u2 (high sparse) should rank first.
	if out[0].UserID != "u2" {
		t.Errorf("expected u2 to rank first under sparse-favouring DBSF, got %s", out[0].UserID)
	}
}

func TestFuseDBSF_FallsBackWhenScoresMissing(t *testing.T) {
	candidates := []searchtypes.Candidate{
		{UserID: "u1", Score: 0.3},
		{UserID: "u2", Score: 0.9},
	}
	out := fuseDBSF(candidates, 0.2)
	if out[0].UserID != "u2" {
		t.Errorf("expected fallback to sort by raw Score desc, got %s first", out[0].UserID)
	}
}

func TestFuseRRF_CombinesBothRankings(t *testing.T) {
	candidates := []searchtypes.Candidate{
		withScores("u1", 0.9, 0.1), // dense rank 1, sparse rank 3
		withScores("u2", 0.1, 0.9), // dense rank 3, sparse rank 1
		withScores("u3", 0.5, 0.5), // dense rank 2, sparse rank 2
	}
	out := fuseRRF(candidates)
	// 1/(60+1)+1/(60+3) > 2/(60+2): a first place outweighs two second places,
	// so u1 and u2 tie above u3 and the tie goes to u1 by ascending user_id.
	if out[0].UserID != "u1" {
		t.Errorf("expected u1 to win RRF fusion via its first-place rank and user_id tie-break, got %s", out[0].UserID)
	}
}

func TestDropSwiped_RemovesOnlyListedIDs(t *testing.T) {
	candidates := []searchtypes.Candidate{{UserID: "u1"}, {UserID: "u2"}, {UserID: "u3"}}
	out := dropSwiped(candidates, []string{"u2"})
	if len(out) != 2 {
		t.Fatalf("expected 2 survivors, got %d", len(out))
	}
	for _, c := range out {
		if c.UserID == "u2" {
			t.Errorf("expected u2 to be dropped, found it in result")
		}
	}
}

func TestSortByScoreDesc_TiesBrokenByUserIDAscending(t *testing.T) {
	candidates := []searchtypes.Candidate{
		{UserID: "b", Score: 1.0},
		{UserID: "a", Score: 1.0},
	}
	out := sortByScoreDesc(candidates)
	if out[0].UserID != "a" {
		t.Errorf("expected tie broken by ascending user_id, got %s first", out[0].UserID)
	}
}
