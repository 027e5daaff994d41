package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dverbovs/casekeeper/internal/common"
	"github.com/dverbovs/casekeeper/internal/models"
)

func (a *App) List(ctx context.Context) error {
	cases, err := a.repo.List(ctx)
	if err != nil {
		fmt.Fprintf(a.out, "No case data available: %s\n", err)
		return err
	}

	if len(cases) == 0 {
		fmt.Fprintln(a.out, "No cases")
		return nil
	}
	for _, c := range cases {
		risk := "-"
		if c.FTARiskLevel != nil {
			risk = *c.FTARiskLevel
		}
		fmt.Fprintf(a.out, "%s  %-24s  %-14s  risk:%s  updated:%s\n",
			c.ID, c.Name, c.Purpose, risk, c.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

func (a *App) Add(ctx context.Context) error {
	name, err := GetSimpleText(a.reader, "Subject name", a.out)
	if err != nil {
		return err
	}
	purpose, err := GetSimpleText(a.reader, "Purpose (e.g. fta_recovery)", a.out)
	if err != nil {
		return err
	}

	attestation, err := GetSimpleText(a.reader, "I attest this case serves a lawful purpose (yes/no)", a.out)
	if err != nil {
		return err
	}
	if !strings.EqualFold(attestation, "yes") && !strings.EqualFold(attestation, "y") {
		fmt.Fprintln(a.out, "Attestation declined, case not created")
		return nil
	}

	c := models.Case{Name: name, Purpose: purpose, AttestationAccepted: true}

	if notes, err := GetMultiline(a.reader, "Notes (optional)", a.out); err == nil && notes != "" {
		c.Notes = &notes
	}

	created, err := a.repo.Create(ctx, c)
	if err != nil {
		fmt.Fprintf(a.out, "Create failed: %s\n", err)
		return err
	}

	fmt.Fprintf(a.out, "Created case %s\n", created.ID)
	return nil
}

func (a *App) Show(ctx context.Context, id string) error {
	c, err := a.repo.GetOne(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			fmt.Fprintln(a.out, "No such case")
		} else {
			fmt.Fprintf(a.out, "Error: %s\n", err)
		}
		return err
	}

	fmt.Fprintf(a.out, "Case %s\n", c.ID)
	fmt.Fprintf(a.out, "  Name:        %s\n", c.Name)
	fmt.Fprintf(a.out, "  Purpose:     %s\n", c.Purpose)
	fmt.Fprintf(a.out, "  Created:     %s\n", c.CreatedAt.Local().Format(time.RFC1123))
	fmt.Fprintf(a.out, "  Updated:     %s\n", c.UpdatedAt.Local().Format(time.RFC1123))
	if c.Notes != nil {
		fmt.Fprintf(a.out, "  Notes:       %s\n", *c.Notes)
	}
	if c.FTAScore != nil {
		fmt.Fprintf(a.out, "  FTA score:   %s", strconv.FormatFloat(*c.FTAScore, 'f', 1, 64))
		if c.FTARiskLevel != nil {
			fmt.Fprintf(a.out, " (%s)", *c.FTARiskLevel)
		}
		fmt.Fprintln(a.out)
	}
	if c.MugshotURL != nil {
		fmt.Fprintf(a.out, "  Photo:       %s\n", *c.MugshotURL)
	}
	if c.Charges != nil {
		fmt.Fprintf(a.out, "  Charges:     %s\n", *c.Charges)
	}
	if c.BondAmount != nil {
		fmt.Fprintf(a.out, "  Bond:        %.2f\n", *c.BondAmount)
	}
	if c.PrimaryTarget != nil {
		fmt.Fprintf(a.out, "  Target:      %s\n", *c.PrimaryTarget)
	}
	if c.AutoDeleteAt != nil {
		fmt.Fprintf(a.out, "  Auto-delete: %s\n", c.AutoDeleteAt.Local().Format(time.RFC1123))
	}
	return nil
}

func (a *App) Edit(ctx context.Context, id string) error {
	patch := models.Case{ID: id}

	if name, err := GetSimpleText(a.reader, "New name (empty keeps current)", a.out); err == nil && name != "" {
		patch.Name = name
	}
	if notes, err := GetMultiline(a.reader, "New notes (empty keeps current)", a.out); err == nil && notes != "" {
		patch.Notes = &notes
	}

	updated, err := a.repo.Update(ctx, patch)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			fmt.Fprintln(a.out, "No such case")
		} else {
			fmt.Fprintf(a.out, "Update failed: %s\n", err)
		}
		return err
	}

	fmt.Fprintf(a.out, "Updated case %s\n", updated.ID)
	return nil
}

func (a *App) Delete(ctx context.Context, id string) error {
	confirm, err := GetSimpleText(a.reader, fmt.Sprintf("Delete case %s? (yes/no)", id), a.out)
	if err != nil {
		return err
	}
	if !strings.EqualFold(confirm, "yes") && !strings.EqualFold(confirm, "y") {
		fmt.Fprintln(a.out, "Cancelled")
		return nil
	}

	a.repo.Delete(ctx, id)
	fmt.Fprintln(a.out, "Deleted")
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	a.sync.Refresh(ctx)
	return a.List(ctx)
}
