package source

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/zippowriter/bigquery-dashboard/internal/bqerr"
	"github.com/zippowriter/bigquery-dashboard/internal/models"
	"github.com/zippowriter/bigquery-dashboard/pkg/config"
)

type fakeRowIterator struct {
	rows []jobsRow
	pos  int
}

func (f *fakeRowIterator) Next(dst any) error {
	if f.pos >= len(f.rows) {
		return iterator.Done
	}
	*dst.(*jobsRow) = f.rows[f.pos]
	f.pos++
	return nil
}

func (f *fakeRowIterator) Total() uint64 { return uint64(len(f.rows)) }

type fakeQueryRunner struct {
	rows   []jobsRow
	err    error
	gotSQL string
	calls  int
}

func (f *fakeQueryRunner) Run(ctx context.Context, sql string, params []bigquery.QueryParameter) (rowIterator, error) {
	f.calls++
	f.gotSQL = sql
	if f.err != nil {
		return nil, f.err
	}
	return &fakeRowIterator{rows: f.rows}, nil
}

func testFilterConfig(t *testing.T, days int, dataset, pattern string) config.FilterConfig {
	t.Helper()
	fc, err := config.NewFilterConfig(days, time.Time{}, time.Time{}, dataset, pattern, 0)
	if err != nil {
		t.Fatal(err)
	}
	return fc
}

func instantRetry() retryConfig {
	cfg := defaultRetryConfig(2)
	cfg.sleep = func(context.Context, time.Duration) error { return nil }
	return cfg
}

func TestInfoSchemaFetch(t *testing.T) {
	runner := &fakeQueryRunner{rows: []jobsRow{
		{ProjectID: "p", DatasetID: "d1", TableID: "t1", AccessCount: 10, PrincipalCount: 3},
		{ProjectID: "p", DatasetID: "d2", TableID: "t2", AccessCount: 4, PrincipalCount: 1},
	}}
	s := &InfoSchema{runner: runner, region: "us", retry: instantRetry()}

	results, err := s.FetchTableAccess(context.Background(), "p", testFilterConfig(t, 30, "", ""), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	want := models.TableAccessCount{
		ProjectID: "p", DatasetID: "d1", TableID: "t1",
		AccessCount: 10, Source: models.SourceInfoSchema,
	}
	if results[0] != want {
		t.Errorf("first result = %+v, want %+v", results[0], want)
	}
}

func TestInfoSchemaFetchEmptyProjectID(t *testing.T) {
	s := &InfoSchema{runner: &fakeQueryRunner{}, region: "us", retry: instantRetry()}
	_, err := s.FetchTableAccess(context.Background(), "", testFilterConfig(t, 30, "", ""), nil)
	if bqerr.KindOf(err) != bqerr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestInfoSchemaFetchClassifiesErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bqerr.Kind
	}{
		{name: "unauthorized", err: &googleapi.Error{Code: 401}, want: bqerr.KindAuthentication},
		{name: "forbidden", err: &googleapi.Error{Code: 403}, want: bqerr.KindPermissionDenied},
		{name: "server_error", err: &googleapi.Error{Code: 503}, want: bqerr.KindNetwork},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := &InfoSchema{runner: &fakeQueryRunner{err: tc.err}, region: "us", retry: instantRetry()}
			_, err := s.FetchTableAccess(context.Background(), "p", testFilterConfig(t, 30, "", ""), nil)
			if bqerr.KindOf(err) != tc.want {
				t.Errorf("kind = %v, want %v", bqerr.KindOf(err), tc.want)
			}
		})
	}
}

func TestInfoSchemaFetchRetriesRateLimits(t *testing.T) {
	runner := &fakeQueryRunner{err: &googleapi.Error{Code: 429}}
	s := &InfoSchema{runner: runner, region: "us", retry: instantRetry()}

	_, err := s.FetchTableAccess(context.Background(), "p", testFilterConfig(t, 30, "", ""), nil)
	if bqerr.KindOf(err) != bqerr.KindNetwork {
		t.Fatalf("exhausted rate-limit retries should surface as network, got %v", err)
	}
	if runner.calls != 3 {
		t.Errorf("expected 3 attempts (1 + 2 retries), got %d", runner.calls)
	}
}

func TestInfoSchemaFetchReportsProgress(t *testing.T) {
	rows := make([]jobsRow, 150)
	for i := range rows {
		rows[i] = jobsRow{ProjectID: "p", DatasetID: "d", TableID: "t", AccessCount: 1}
	}
	s := &InfoSchema{runner: &fakeQueryRunner{rows: rows}, region: "us", retry: instantRetry()}

	var reports []int
	_, err := s.FetchTableAccess(context.Background(), "p", testFilterConfig(t, 30, "", ""),
		func(current, total int, message string) {
			reports = append(reports, current)
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// One report at row 100, one when the iterator total is reached, one final.
	if len(reports) < 2 {
		t.Fatalf("expected interval and final reports, got %v", reports)
	}
	if reports[0] != 100 {
		t.Errorf("first report at %d rows, want 100", reports[0])
	}
	if reports[len(reports)-1] != 150 {
		t.Errorf("final report at %d rows, want 150", reports[len(reports)-1])
	}
}

func TestBuildJobsQuery(t *testing.T) {
	t.Run("relative_window", func(t *testing.T) {
		sql, params := buildJobsQuery("p", "us", testFilterConfig(t, 30, "", ""))

		for _, fragment := range []string{
			"`p.region-us.INFORMATION_SCHEMA.JOBS_BY_PROJECT`",
			"UNNEST(referenced_tables)",
			"job_type = 'QUERY'",
			"state = 'DONE'",
			"TIMESTAMP_SUB(CURRENT_TIMESTAMP(), INTERVAL @days DAY)",
			"GROUP BY project_id, dataset_id, table_id",
			"ORDER BY access_count DESC",
		} {
			if !strings.Contains(sql, fragment) {
				t.Errorf("query missing %q:\n%s", fragment, sql)
			}
		}
		if len(params) != 1 || params[0].Name != "days" || params[0].Value != int64(30) {
			t.Errorf("unexpected params: %+v", params)
		}
	})

	t.Run("explicit_range", func(t *testing.T) {
		start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
		fc, err := config.NewFilterConfig(0, start, end, "", "", 0)
		if err != nil {
			t.Fatal(err)
		}

		sql, params := buildJobsQuery("p", "eu", fc)
		if !strings.Contains(sql, "creation_time >= @start_date") ||
			!strings.Contains(sql, "creation_time < @end_date") {
			t.Errorf("query missing explicit range bounds:\n%s", sql)
		}
		if strings.Contains(sql, "@days") {
			t.Errorf("explicit range should not use @days:\n%s", sql)
		}
		if len(params) != 2 {
			t.Fatalf("expected 2 params, got %+v", params)
		}
	})

	t.Run("filters", func(t *testing.T) {
		sql, params := buildJobsQuery("p", "us", testFilterConfig(t, 30, "analytics", "^events_"))
		if !strings.Contains(sql, "STARTS_WITH(ref.dataset_id, @dataset)") {
			t.Errorf("query missing dataset filter:\n%s", sql)
		}
		if !strings.Contains(sql, "REGEXP_CONTAINS(ref.table_id, @table_pattern)") {
			t.Errorf("query missing table pattern filter:\n%s", sql)
		}
		if len(params) != 3 {
			t.Errorf("expected 3 params, got %+v", params)
		}
	})
}

func TestInfoSchemaIteratorError(t *testing.T) {
	s := &InfoSchema{
		runner: &failingIteratorRunner{failAfter: 1},
		region: "us",
		retry:  instantRetry(),
	}

	_, err := s.FetchTableAccess(context.Background(), "p", testFilterConfig(t, 30, "", ""), nil)
	if bqerr.KindOf(err) != bqerr.KindNetwork {
		t.Fatalf("expected classified iterator error, got %v", err)
	}
}

type failingIteratorRunner struct {
	failAfter int
}

func (f *failingIteratorRunner) Run(ctx context.Context, sql string, params []bigquery.QueryParameter) (rowIterator, error) {
	return &failingRowIterator{failAfter: f.failAfter}, nil
}

type failingRowIterator struct {
	failAfter int
	pos       int
}

func (f *failingRowIterator) Next(dst any) error {
	if f.pos >= f.failAfter {
		return errors.New("connection reset by peer")
	}
	*dst.(*jobsRow) = jobsRow{ProjectID: "p", DatasetID: "d", TableID: "t", AccessCount: 1}
	f.pos++
	return nil
}

func (f *failingRowIterator) Total() uint64 { return 10 }
