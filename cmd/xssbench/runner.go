package main

import (
	"context"

	"github.com/go-rod/rod"

	"github.com/xssbench/xssbench"
	"github.com/xssbench/xssbench/internal/pagectl"
)

// pageRunner adapts a *pagectl.Controller to the xssbench.PageRunner
// interface the Scheduler depends on, translating the package-neutral
// CaseDocument into pagectl's RunOpts.
type pageRunner struct {
	ctrl *pagectl.Controller
}

func newPageRunner(b *rod.Browser, useStealth bool) (xssbench.PageRunner, error) {
	ctrl, err := pagectl.Open(b, useStealth)
	if err != nil {
		return nil, err
	}
	return &pageRunner{ctrl: ctrl}, nil
}

func (r *pageRunner) Run(ctx context.Context, doc xssbench.CaseDocument, adapterStatus xssbench.AdapterStatus) (xssbench.Signals, bool, error) {
	opts := pagectl.RunOpts{
		DocumentHTML: doc.HTML,
		Context:      doc.Context,
		FragmentHTML: doc.FragmentHTML,
		ExpectedTags: doc.ExpectedTags,
		Timeout:      doc.Timeout,
		ProbeBudget:  doc.ProbeBudget,
	}
	return r.ctrl.Run(ctx, opts, adapterStatus)
}

func (r *pageRunner) CasesSinceOpen() int {
	return r.ctrl.CasesSinceOpen()
}

func (r *pageRunner) Close() error {
	return r.ctrl.Close()
}
