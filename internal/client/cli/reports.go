package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dverbovs/casekeeper/internal/common"
	"github.com/dverbovs/casekeeper/internal/models"
	"github.com/dverbovs/casekeeper/internal/netx"
)

func (a *App) Reports(ctx context.Context, caseID string) error {
	reports, err := a.repo.ListReportsForCase(ctx, caseID)
	if err != nil {
		fmt.Fprintf(a.out, "Error: %s\n", err)
		return err
	}

	if len(reports) == 0 {
		fmt.Fprintln(a.out, "No reports")
		return nil
	}
	for _, r := range reports {
		pdf := "-"
		if r.PDFPath != nil {
			pdf = *r.PDFPath
		}
		fmt.Fprintf(a.out, "%s  created:%s  pdf:%s\n", r.ID, r.CreatedAt.Local().Format(time.RFC1123), pdf)
	}
	return nil
}

// AddReport attaches a report to a case. A local PDF, when given, is
// pushed to shared storage through a presigned URL so other devices can
// fetch it; the upload is best-effort and the report is kept either way.
func (a *App) AddReport(ctx context.Context, caseID string) error {
	pdfPath, err := GetSimpleText(a.reader, "Path to PDF (empty for none)", a.out)
	if err != nil {
		return err
	}
	parsed, err := GetMultiline(a.reader, "Parsed report data (JSON)", a.out)
	if err != nil {
		return err
	}
	if parsed == "" {
		parsed = "{}"
	}

	r := models.Report{CaseID: caseID, ParsedData: []byte(parsed)}

	if pdfPath != "" {
		if key, err := a.uploadReportPDF(ctx, pdfPath); err != nil {
			fmt.Fprintf(a.out, "PDF upload failed, keeping local path only: %s\n", err)
			r.PDFPath = &pdfPath
		} else {
			r.PDFPath = &key
		}
	}

	created, err := a.repo.CreateReport(ctx, r)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			fmt.Fprintln(a.out, "No such case")
		} else {
			fmt.Fprintf(a.out, "Error: %s\n", err)
		}
		return err
	}

	fmt.Fprintf(a.out, "Added report %s\n", created.ID)
	return nil
}

func (a *App) uploadReportPDF(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	key, url, err := a.remote.PresignReportPDF(ctx)
	if err != nil {
		return "", err
	}
	if err := netx.UploadToPresignedURL(ctx, url, data); err != nil {
		return "", err
	}
	return key, nil
}
