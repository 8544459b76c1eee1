package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

const resolvedEventType = "LeaseDisputeResolved"

type settlementRow struct {
	DisputeID     int64  `parquet:"name=dispute_id, type=INT64"`
	PropertyID    int64  `parquet:"name=property_id, type=INT64"`
	ApplicationID int64  `parquet:"name=application_id, type=INT64"`
	Tenant        string `parquet:"name=tenant, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Landlord      string `parquet:"name=landlord, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Status        string `parquet:"name=status, type=UTF8, encoding=PLAIN_DICTIONARY"`
	ApproveVotes  int64  `parquet:"name=approve_votes, type=INT64"`
	RejectVotes   int64  `parquet:"name=reject_votes, type=INT64"`
	Paid          string `parquet:"name=paid, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Retained      string `parquet:"name=retained, type=UTF8, encoding=PLAIN_DICTIONARY"`
	TenantReward  string `parquet:"name=tenant_reward, type=UTF8, encoding=PLAIN_DICTIONARY"`
	Winners       string `parquet:"name=winners, type=UTF8, encoding=PLAIN_DICTIONARY"`
	ResolvedAt    string `parquet:"name=resolved_at, type=UTF8, encoding=PLAIN_DICTIONARY"`
}

// ExportSettlements writes every resolved dispute to a parquet file under dir
// and returns its path and row count.
func (s *Store) ExportSettlements(ctx context.Context, dir string) (string, int, error) {
	records, err := s.ByType(ctx, resolvedEventType)
	if err != nil {
		return "", 0, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("indexer: create export dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("settlements-%s.parquet", s.now().UTC().Format("20060102T150405Z")))

	rows := make([]*settlementRow, 0, len(records))
	for _, rec := range records {
		attrs, err := rec.Attrs()
		if err != nil {
			return "", 0, err
		}
		rows = append(rows, &settlementRow{
			DisputeID:     parseInt(attrs["disputeId"]),
			PropertyID:    parseInt(attrs["propertyId"]),
			ApplicationID: parseInt(attrs["applicationId"]),
			Tenant:        attrs["tenant"],
			Landlord:      attrs["landlord"],
			Status:        attrs["status"],
			ApproveVotes:  parseInt(attrs["approveVotes"]),
			RejectVotes:   parseInt(attrs["rejectVotes"]),
			Paid:          attrs["paid"],
			Retained:      attrs["retained"],
			TenantReward:  attrs["tenantReward"],
			Winners:       attrs["winners"],
			ResolvedAt:    rec.CreatedAt.Format(time.RFC3339),
		})
	}
	if err := writeParquet(path, rows); err != nil {
		return "", 0, err
	}
	return path, len(rows), nil
}

func parseInt(v string) int64 {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func writeParquet(path string, rows []*settlementRow) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("indexer: create parquet: %w", err)
	}
	fw := writerfile.NewWriterFile(file)
	pw, err := writer.NewParquetWriter(fw, new(settlementRow), 1)
	if err != nil {
		file.Close()
		return fmt.Errorf("indexer: parquet schema: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range rows {
		if err := pw.Write(row); err != nil {
			pw.WriteStop()
			file.Close()
			return fmt.Errorf("indexer: parquet write: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		file.Close()
		return fmt.Errorf("indexer: parquet flush: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("indexer: close parquet file: %w", err)
	}
	return nil
}
