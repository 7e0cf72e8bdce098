package identity

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/sourcegraph/conc/pool"
	"github.com/travigo/journeymapper/pkg/ctdf"
	"github.com/travigo/journeymapper/pkg/metrics"
	"golang.org/x/exp/slices"
)

const batchConcurrency = 16

var ErrInvalidVersion = errors.New("version must be a number or latest")

type ServiceJourneyParam struct {
	ServiceJourneyID string `json:"serviceJourneyId"`
	Version          string `json:"version"`
	DepartureDate    string `json:"departureDate"`
}

type DatedServiceJourneyParam struct {
	DatedServiceJourneyID string `json:"datedServiceJourneyId"`
}

func (s *Service) FindByDatedServiceJourneyID(ctx context.Context, datedServiceJourneyID string) (*ctdf.DatedServiceJourney, error) {
	datedServiceJourney, err := s.store.ByDatedServiceJourneyID(ctx, datedServiceJourneyID)
	if err != nil {
		return nil, err
	}

	s.metrics.MarkLookup(metrics.SearchDatedServiceJourney, codespaceOf(datedServiceJourney))

	return datedServiceJourney, nil
}

// FindByOriginalDatedServiceJourneyID returns every record of the lineage, newest publication first
func (s *Service) FindByOriginalDatedServiceJourneyID(ctx context.Context, originalDatedServiceJourneyID string) ([]*ctdf.DatedServiceJourney, error) {
	datedServiceJourneys, err := s.store.ByOriginalDatedServiceJourneyID(ctx, originalDatedServiceJourneyID)
	if err != nil {
		return nil, err
	}

	codespace := ""
	if len(datedServiceJourneys) > 0 {
		codespace = datedServiceJourneys[0].Codespace()
	}
	s.metrics.MarkLookup(metrics.SearchOriginalDatedServiceJourney, codespace)

	if datedServiceJourneys == nil {
		datedServiceJourneys = []*ctdf.DatedServiceJourney{}
	}

	return datedServiceJourneys, nil
}

// FindByServiceJourneyID looks up a service journey on a date. A version of "latest" or "" matches any version.
func (s *Service) FindByServiceJourneyID(ctx context.Context, serviceJourneyID string, version string, departureDate string) (*ctdf.DatedServiceJourney, error) {
	s.metrics.MarkLookup(metrics.SearchServiceJourneyIDDate, ctdf.Codespace(serviceJourneyID))

	datedServiceJourney, err := s.store.ByServiceJourneyIDAndDate(ctx, serviceJourneyID, departureDate)
	if err != nil {
		return nil, err
	}

	return filterVersion(datedServiceJourney, version)
}

func (s *Service) FindByPrivateCode(ctx context.Context, privateCode string, version string, departureDate string) (*ctdf.DatedServiceJourney, error) {
	datedServiceJourney, err := s.store.ByPrivateCodeAndDate(ctx, privateCode, departureDate)
	if err != nil {
		return nil, err
	}

	s.metrics.MarkLookup(metrics.SearchPrivateCodeDepartureDate, codespaceOf(datedServiceJourney))

	return filterVersion(datedServiceJourney, version)
}

// FindDatedServiceJourneys looks up every param concurrently and returns the matches in request order
func (s *Service) FindDatedServiceJourneys(ctx context.Context, params []ServiceJourneyParam) ([]*ctdf.DatedServiceJourney, error) {
	return findBatch(ctx, params, func(ctx context.Context, param ServiceJourneyParam) (*ctdf.DatedServiceJourney, error) {
		return s.FindByServiceJourneyID(ctx, param.ServiceJourneyID, param.Version, param.DepartureDate)
	})
}

func (s *Service) FindByDatedServiceJourneyIDs(ctx context.Context, params []DatedServiceJourneyParam) ([]*ctdf.DatedServiceJourney, error) {
	return findBatch(ctx, params, func(ctx context.Context, param DatedServiceJourneyParam) (*ctdf.DatedServiceJourney, error) {
		return s.FindByDatedServiceJourneyID(ctx, param.DatedServiceJourneyID)
	})
}

type batchResult struct {
	index               int
	datedServiceJourney *ctdf.DatedServiceJourney
}

func findBatch[P any](ctx context.Context, params []P, find func(context.Context, P) (*ctdf.DatedServiceJourney, error)) ([]*ctdf.DatedServiceJourney, error) {
	p := pool.NewWithResults[batchResult]().WithContext(ctx).WithMaxGoroutines(batchConcurrency)

	for index, param := range params {
		p.Go(func(ctx context.Context) (batchResult, error) {
			datedServiceJourney, err := find(ctx, param)
			return batchResult{index: index, datedServiceJourney: datedServiceJourney}, err
		})
	}

	results, err := p.Wait()
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b batchResult) int {
		return a.index - b.index
	})

	datedServiceJourneys := []*ctdf.DatedServiceJourney{}
	for _, result := range results {
		if result.datedServiceJourney != nil {
			datedServiceJourneys = append(datedServiceJourneys, result.datedServiceJourney)
		}
	}

	return datedServiceJourneys, nil
}

func filterVersion(datedServiceJourney *ctdf.DatedServiceJourney, version string) (*ctdf.DatedServiceJourney, error) {
	version = strings.TrimSpace(version)
	if version == "" || strings.EqualFold(version, "latest") {
		return datedServiceJourney, nil
	}

	versionNumber, err := strconv.Atoi(version)
	if err != nil {
		return nil, ErrInvalidVersion
	}

	if datedServiceJourney == nil || datedServiceJourney.Version != versionNumber {
		return nil, nil
	}

	return datedServiceJourney, nil
}

func codespaceOf(datedServiceJourney *ctdf.DatedServiceJourney) string {
	if datedServiceJourney == nil {
		return ""
	}

	return datedServiceJourney.Codespace()
}
