package runner

import (
	"strconv"

	"github.com/beevik/etree"

	"github.com/arthur-debert/packtest/pkg/errors"
)

// Report is the test-count summary parsed from a JUnit/xunit XML file.
type Report struct {
	Tests    int
	Failures int
	Errors   int
	Skipped  int
}

// Problems returns the number of tests that did not pass.
func (r *Report) Problems() int {
	return r.Failures + r.Errors
}

// ParseReport reads a JUnit XML report. It accepts both a bare <testsuite>
// root (nose's xunit plugin) and a <testsuites> wrapper (pytest), summing
// suite counts in the latter case.
func ParseReport(path string) (*Report, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return nil, errors.Wrap(err, errors.ErrFileAccess, "cannot read test report").
			WithDetail("path", path)
	}

	root := doc.Root()
	if root == nil {
		return nil, errors.New(errors.ErrInvalidInput, "test report has no root element").
			WithDetail("path", path)
	}

	var suites []*etree.Element
	switch root.Tag {
	case "testsuite":
		suites = []*etree.Element{root}
	case "testsuites":
		suites = root.SelectElements("testsuite")
	default:
		return nil, errors.Newf(errors.ErrInvalidInput, "unexpected report root element <%s>", root.Tag).
			WithDetail("path", path)
	}

	report := &Report{}
	for _, suite := range suites {
		report.Tests += intAttr(suite, "tests")
		report.Failures += intAttr(suite, "failures")
		report.Errors += intAttr(suite, "errors")
		// nose writes "skip", the JUnit schema says "skipped"
		if v := intAttr(suite, "skipped"); v > 0 {
			report.Skipped += v
		} else {
			report.Skipped += intAttr(suite, "skip")
		}
	}
	return report, nil
}

func intAttr(el *etree.Element, name string) int {
	v, err := strconv.Atoi(el.SelectAttrValue(name, "0"))
	if err != nil {
		return 0
	}
	return v
}
