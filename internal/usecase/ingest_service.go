package usecase

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/udayshankar95/central-farming-tool/internal/apperrors"
	"github.com/udayshankar95/central-farming-tool/internal/config"
	"github.com/udayshankar95/central-farming-tool/internal/model"
	"github.com/udayshankar95/central-farming-tool/internal/observer"
	"github.com/udayshankar95/central-farming-tool/internal/session"
	"github.com/udayshankar95/central-farming-tool/internal/storage"
	"github.com/udayshankar95/central-farming-tool/pkg/logger"
	"github.com/udayshankar95/central-farming-tool/pkg/utils"
)

// RowError pins a rejected upload row to its line number. Line 1 is the header.
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// IngestReport summarizes one bulk upload. A report with failures is still a
// success at the HTTP level: valid rows are persisted, invalid rows are listed.
type IngestReport struct {
	Kind      string     `json:"kind"`
	Total     int        `json:"total_rows"`
	Succeeded int        `json:"succeeded"`
	Failed    int        `json:"failed"`
	Errors    []RowError `json:"errors,omitempty"`
}

// IngestService parses bulk CSV uploads on a shared worker pool and upserts
// the results. Parsing runs row-parallel; persistence is one batched upsert so
// a partial file never interleaves with another upload.
type IngestService struct {
	partners storage.PartnerRepo
	metrics  storage.MetricRepo
	pool     *ants.Pool
}

// NewIngestService creates an IngestService with its worker pool.
func NewIngestService(partners storage.PartnerRepo, metrics storage.MetricRepo, cfg config.IngestWorkerPoolConfig) (*IngestService, error) {
	pool, err := ants.NewPool(cfg.PoolSize,
		ants.WithExpiryDuration(cfg.ExpiryTime),
		ants.WithNonblocking(false),
		ants.WithMaxBlockingTasks(cfg.QueueSize),
		ants.WithPanicHandler(func(p interface{}) {
			logger.Log.Error("Panic recovered in ingest worker", zap.Any("panic_error", p), zap.Stack("stack"))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ingest worker pool: %w", err)
	}

	logger.Log.Info("Ingest worker pool initialized",
		zap.Int("pool_size", cfg.PoolSize),
		zap.Int("queue_size", cfg.QueueSize),
		zap.Duration("expiry_time", cfg.ExpiryTime))

	return &IngestService{partners: partners, metrics: metrics, pool: pool}, nil
}

// Stop releases the worker pool.
func (s *IngestService) Stop() {
	if s.pool != nil {
		s.pool.Release()
	}
}

type parsedPartnerRow struct {
	partner model.Partner
	agentID string
}

// IngestPartners parses a partner attribute CSV and upserts the rows. Rows
// carrying an agent_id column are also mapped to that agent.
func (s *IngestService) IngestPartners(ctx context.Context, r io.Reader) (*IngestReport, error) {
	if _, err := session.FromContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, err)
	}
	log := logger.FromContext(ctx)

	header, records, err := readCSV(r)
	if err != nil {
		return nil, err
	}

	report := &IngestReport{Kind: "partners", Total: len(records)}
	rows := make([]*parsedPartnerRow, len(records))
	rowErrs := make([]*RowError, len(records))

	var wg sync.WaitGroup
	for i := range records {
		i := i
		wg.Add(1)
		submitErr := s.pool.Submit(func() {
			defer wg.Done()
			row, parseErr := parsePartnerRow(header, records[i])
			if parseErr != nil {
				rowErrs[i] = &RowError{Line: i + 2, Message: parseErr.Error()}
				return
			}
			rows[i] = row
		})
		if submitErr != nil {
			wg.Done()
			rowErrs[i] = &RowError{Line: i + 2, Message: submitErr.Error()}
			if errors.Is(submitErr, ants.ErrPoolOverload) {
				log.Warn("Ingest pool overloaded, row rejected", zap.Int("line", i+2))
			}
		}
	}
	observer.SetIngestQueueLength(s.pool.Waiting())
	wg.Wait()
	observer.SetIngestQueueLength(s.pool.Waiting())

	partners := make([]model.Partner, 0, len(records))
	agentRows := make(map[string][]string) // agent id -> external partner ids
	for i := range records {
		if rowErrs[i] != nil {
			report.Errors = append(report.Errors, *rowErrs[i])
			observer.IncIngestRows("partners", "error")
			continue
		}
		partners = append(partners, rows[i].partner)
		if rows[i].agentID != "" {
			agentRows[rows[i].agentID] = append(agentRows[rows[i].agentID], rows[i].partner.ExternalPartnerID)
		}
		observer.IncIngestRows("partners", "ok")
	}

	if len(partners) > 0 {
		if err := s.partners.BulkUpsertPartners(ctx, partners); err != nil {
			return nil, err
		}
	}

	if len(agentRows) > 0 {
		if err := s.mapUploadedPartners(ctx, agentRows); err != nil {
			return nil, err
		}
	}

	report.Failed = len(report.Errors)
	report.Succeeded = report.Total - report.Failed
	log.Info("Partner upload ingested",
		zap.Int("total", report.Total),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed))
	return report, nil
}

func (s *IngestService) mapUploadedPartners(ctx context.Context, agentRows map[string][]string) error {
	all := make([]string, 0)
	for _, externalIDs := range agentRows {
		all = append(all, externalIDs...)
	}
	ids, err := s.partners.FindPartnerIDsByExternalIDs(ctx, all)
	if err != nil {
		return err
	}

	// Deterministic order keeps retries and logs stable.
	agents := make([]string, 0, len(agentRows))
	for agentID := range agentRows {
		agents = append(agents, agentID)
	}
	sort.Strings(agents)

	for _, agentID := range agents {
		partnerIDs := make([]int64, 0, len(agentRows[agentID]))
		for _, externalID := range agentRows[agentID] {
			if id, ok := ids[externalID]; ok {
				partnerIDs = append(partnerIDs, id)
			}
		}
		if err := s.partners.MapPartnersToAgent(ctx, partnerIDs, agentID); err != nil {
			return err
		}
	}
	return nil
}

// IngestMetrics parses a monthly metrics CSV and upserts the rows. Rows naming
// an unknown partner are rejected individually; the rest are persisted.
func (s *IngestService) IngestMetrics(ctx context.Context, r io.Reader) (*IngestReport, error) {
	if _, err := session.FromContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, err)
	}
	log := logger.FromContext(ctx)

	header, records, err := readCSV(r)
	if err != nil {
		return nil, err
	}

	report := &IngestReport{Kind: "metrics", Total: len(records)}

	type parsedMetricRow struct {
		metric     model.MonthlyMetric
		externalID string
	}
	rows := make([]*parsedMetricRow, len(records))
	rowErrs := make([]*RowError, len(records))

	var wg sync.WaitGroup
	for i := range records {
		i := i
		wg.Add(1)
		submitErr := s.pool.Submit(func() {
			defer wg.Done()
			externalID, metric, parseErr := parseMetricRow(header, records[i])
			if parseErr != nil {
				rowErrs[i] = &RowError{Line: i + 2, Message: parseErr.Error()}
				return
			}
			rows[i] = &parsedMetricRow{metric: *metric, externalID: externalID}
		})
		if submitErr != nil {
			wg.Done()
			rowErrs[i] = &RowError{Line: i + 2, Message: submitErr.Error()}
		}
	}
	observer.SetIngestQueueLength(s.pool.Waiting())
	wg.Wait()
	observer.SetIngestQueueLength(s.pool.Waiting())

	externalIDs := make([]string, 0, len(records))
	for i := range records {
		if rows[i] != nil {
			externalIDs = append(externalIDs, rows[i].externalID)
		}
	}
	ids, err := s.partners.FindPartnerIDsByExternalIDs(ctx, externalIDs)
	if err != nil {
		return nil, err
	}

	metrics := make([]model.MonthlyMetric, 0, len(records))
	for i := range records {
		if rowErrs[i] != nil {
			report.Errors = append(report.Errors, *rowErrs[i])
			observer.IncIngestRows("metrics", "error")
			continue
		}
		partnerID, ok := ids[rows[i].externalID]
		if !ok {
			report.Errors = append(report.Errors, RowError{
				Line:    i + 2,
				Message: fmt.Sprintf("unknown partner %q", rows[i].externalID),
			})
			observer.IncIngestRows("metrics", "error")
			continue
		}
		m := rows[i].metric
		m.PartnerID = partnerID
		metrics = append(metrics, m)
		observer.IncIngestRows("metrics", "ok")
	}

	if len(metrics) > 0 {
		if err := s.metrics.BulkUpsertMetrics(ctx, metrics); err != nil {
			return nil, err
		}
	}

	report.Failed = len(report.Errors)
	report.Succeeded = report.Total - report.Failed
	log.Info("Metrics upload ingested",
		zap.Int("total", report.Total),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed))
	return report, nil
}

// --- CSV parsing helpers ---

// readCSV reads the whole file, returning the normalized header and records.
func readCSV(r io.Reader) (map[string]int, [][]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	rawHeader, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to read CSV header: %w", apperrors.ErrBadRequest, err)
	}

	header := make(map[string]int, len(rawHeader))
	for i, col := range rawHeader {
		header[normalizeColumn(col)] = i
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to read CSV rows: %w", apperrors.ErrBadRequest, err)
	}
	return header, records, nil
}

// normalizeColumn canonicalizes an uploaded column name: lowercased, trimmed,
// spaces and hyphens folded to underscores. "Partner ID" and "partner_id" land
// on the same key.
func normalizeColumn(col string) string {
	col = strings.TrimPrefix(col, "\ufeff")
	col = strings.ToLower(strings.TrimSpace(col))
	col = strings.ReplaceAll(col, " ", "_")
	col = strings.ReplaceAll(col, "-", "_")
	for strings.Contains(col, "__") {
		col = strings.ReplaceAll(col, "__", "_")
	}
	return col
}

// NormalizePartnerType folds upload variants of the partner type onto the
// canonical display values.
func NormalizePartnerType(raw string) string {
	switch normalizeColumn(raw) {
	case "at_home", "athome":
		return "At-Home"
	case "in_clinic", "inclinic":
		return "In Clinic"
	case "eclinic", "e_clinic":
		return "eClinic"
	case "":
		return ""
	default:
		return strings.TrimSpace(raw)
	}
}

func field(header map[string]int, record []string, names ...string) string {
	for _, name := range names {
		if idx, ok := header[name]; ok && idx < len(record) {
			return strings.TrimSpace(record[idx])
		}
	}
	return ""
}

func parsePartnerRow(header map[string]int, record []string) (*parsedPartnerRow, error) {
	externalID := field(header, record, "partner_id", "external_partner_id")
	if externalID == "" {
		return nil, errors.New("missing partner_id")
	}
	name := field(header, record, "partner_name", "name")
	if name == "" {
		return nil, errors.New("missing partner_name")
	}

	wallet, err := parseOptionalDecimal(field(header, record, "wallet_amount", "wallet"))
	if err != nil {
		return nil, fmt.Errorf("invalid wallet_amount: %w", err)
	}
	lastOrder, err := parseOptionalDate(field(header, record, "last_order_date"))
	if err != nil {
		return nil, fmt.Errorf("invalid last_order_date: %w", err)
	}

	return &parsedPartnerRow{
		partner: model.Partner{
			ExternalPartnerID: externalID,
			PartnerName:       name,
			City:              field(header, record, "city"),
			Phone:             field(header, record, "phone", "phone_number"),
			PartnerType:       NormalizePartnerType(field(header, record, "partner_type", "type")),
			SegmentTag:        field(header, record, "segment_tag", "segment"),
			PriceList:         field(header, record, "price_list"),
			WalletAmount:      wallet,
			LastOrderDate:     lastOrder,
		},
		agentID: field(header, record, "agent_id", "assigned_agent"),
	}, nil
}

func parseMetricRow(header map[string]int, record []string) (string, *model.MonthlyMetric, error) {
	externalID := field(header, record, "partner_id", "external_partner_id")
	if externalID == "" {
		return "", nil, errors.New("missing partner_id")
	}

	monthRaw := field(header, record, "month_date", "month")
	month, err := parseMonth(monthRaw)
	if err != nil {
		return "", nil, fmt.Errorf("invalid month_date: %w", err)
	}

	orders, err := parseOptionalInt(field(header, record, "orders", "order_count"))
	if err != nil {
		return "", nil, fmt.Errorf("invalid orders: %w", err)
	}
	if orders < 0 {
		return "", nil, errors.New("orders must not be negative")
	}
	gmv, err := parseOptionalDecimal(field(header, record, "gmv"))
	if err != nil {
		return "", nil, fmt.Errorf("invalid gmv: %w", err)
	}
	netRevenue, err := parseOptionalDecimal(field(header, record, "net_revenue", "revenue"))
	if err != nil {
		return "", nil, fmt.Errorf("invalid net_revenue: %w", err)
	}
	revPerGMV, err := parseOptionalDecimal(field(header, record, "rev_per_gmv"))
	if err != nil {
		return "", nil, fmt.Errorf("invalid rev_per_gmv: %w", err)
	}
	channelShare, err := parseOptionalDecimal(field(header, record, "channel_share"))
	if err != nil {
		return "", nil, fmt.Errorf("invalid channel_share: %w", err)
	}
	activeDays, err := parseOptionalInt(field(header, record, "active_days"))
	if err != nil {
		return "", nil, fmt.Errorf("invalid active_days: %w", err)
	}

	return externalID, &model.MonthlyMetric{
		MonthDate:    month,
		Orders:       orders,
		GMV:          gmv,
		NetRevenue:   netRevenue,
		RevPerGMV:    revPerGMV,
		ChannelShare: channelShare,
		ActiveDays:   activeDays,
	}, nil
}

func parseOptionalDecimal(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	raw = strings.ReplaceAll(raw, ",", "")
	return decimal.NewFromString(raw)
}

func parseOptionalInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

var dateLayouts = []string{"2006-01-02", "02/01/2006", "2006-01-02 15:04:05"}

func parseOptionalDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognized date %q", raw)
}

// parseMonth accepts a full date or a year-month and normalizes to the first
// day of the month.
func parseMonth(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("missing month")
	}
	if t, err := time.Parse("2006-01", raw); err == nil {
		return t.UTC(), nil
	}
	d, err := parseOptionalDate(raw)
	if err != nil {
		return time.Time{}, err
	}
	return utils.MonthStart(*d), nil
}
