package schedule

import (
	"context"
	"time"

	"go-llama/internal/evaluate"
	"go-llama/internal/retrieve"
	"go-llama/internal/searchtypes"
)

const searchLimit = 10

// intelligentSearch runs the search sub-pipeline (spec §4.H): concurrent
// preprocessing, then strategy escalation standard → expanded → custom,
// stopping as soon as an attempt reaches good/excellent quality or
// should_continue=false, or once the last strategy has been tried.
func (s *Scheduler) intelligentSearch(ctx context.Context, req Request, language string, currentUser searchtypes.Profile, referencedUsers []searchtypes.Profile) searchtypes.ResponseEnvelope {
	searchStart := time.Now()

	preprocessed := s.preprocessor.Process(ctx, req.Utterance, referencedUsers)

	var bestAnalysis searchtypes.AnalysisResult
	var totalFound int
	attempts := 0
	haveAnalysis := false

	for i, strategy := range retrieve.Strategies {
		attempts = i + 1
		isLast := i == len(retrieve.Strategies)-1

		candidates, err := s.retriever.HybridSearch(ctx, preprocessed.DenseQuery, preprocessed.SparseQuery, strategy, searchLimit, req.ViewedIDs, req.SwipedIDs, true)
		s.stats.IncVectorSearch()
		if err != nil || len(candidates) == 0 {
			if isLast && !haveAnalysis {
				bestAnalysis = poorAnalysis(language)
				haveAnalysis = true
			}
			continue
		}

		totalFound += len(candidates)
		analysis := s.evaluator.Evaluate(ctx, evaluate.Input{
			Query:           req.Utterance,
			Candidates:      candidates,
			Attempt:         attempts,
			CurrentUser:     currentUser,
			Language:        language,
			ReferencedUsers: referencedUsers,
			TotalFound:      totalFound,
		})
		s.stats.IncLLMCall()
		bestAnalysis = analysis
		haveAnalysis = true

		if analysis.OverallQuality == searchtypes.QualityExcellent || analysis.OverallQuality == searchtypes.QualityGood || !analysis.ShouldContinue || isLast {
			break
		}
	}

	if !haveAnalysis {
		bestAnalysis = poorAnalysis(language)
	}

	searchTime := time.Since(searchStart).Seconds()
	s.stats.IncSearch(searchTime)

	return searchtypes.ResponseEnvelope{
		Type:                 "search",
		Candidates:           bestAnalysis.SelectedCandidates,
		IntroMessage:         bestAnalysis.Intro,
		Status:               "ok",
		CandidateCount:       len(bestAnalysis.SelectedCandidates),
		TotalCandidatesFound: totalFound,
		SearchQuality:        bestAnalysis.OverallQuality,
		Analysis:             bestAnalysis.Analysis,
		SearchAttempts:       attempts,
		ProcessingTime:       searchTime,
	}
}

func poorAnalysis(language string) searchtypes.AnalysisResult {
	intro := "No suitable candidates found. Please try expanding your search criteria."
	if language == "zh" {
		intro = "未找到合适的候选人，请尝试扩大搜索范围。"
	}
	return searchtypes.AnalysisResult{
		OverallQuality: searchtypes.QualityPoor,
		ShouldContinue: false,
		Analysis:       "no strategy produced a sufficient candidate pool",
		Intro:          intro,
	}
}
