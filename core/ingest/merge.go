package ingest

import (
	"strconv"
	"time"

	"microcredit/core/types"
)

// Merge inner-joins the usage and registry extracts on SIM_NUMBER and
// derives age and tenure_years against ref. Usage columns win when both
// extracts carry the same name; age and tenure_years are always derived.
// Unparseable dates leave the derived cell empty.
func Merge(usage, kyc *RawTable, ref time.Time) (*RawTable, error) {
	uIdx, err := usage.Require("merge", types.ColSIMNumber)
	if err != nil {
		return nil, err
	}
	kIdx, err := kyc.Require("merge", types.ColSIMNumber, types.ColBirthDate, types.ColAcquisitionDate)
	if err != nil {
		return nil, err
	}
	uSim, kSim, kBirth, kAcq := uIdx[0], kIdx[0], kIdx[1], kIdx[2]

	out := &RawTable{Header: append([]string{}, usage.Header...)}
	var kycCols []int
	for i, h := range kyc.Header {
		if i == kSim || usage.Index(h) >= 0 || h == types.ColAge || h == types.ColTenureYears {
			continue
		}
		kycCols = append(kycCols, i)
		out.Header = append(out.Header, h)
	}
	ageIdx := out.Index(types.ColAge)
	if ageIdx < 0 {
		out.Header = append(out.Header, types.ColAge)
		ageIdx = len(out.Header) - 1
	}
	tenureIdx := out.Index(types.ColTenureYears)
	if tenureIdx < 0 {
		out.Header = append(out.Header, types.ColTenureYears)
		tenureIdx = len(out.Header) - 1
	}

	bySIM := make(map[string][][]string, len(kyc.Records))
	for _, rec := range kyc.Records {
		sim := Cell(rec, kSim)
		bySIM[sim] = append(bySIM[sim], rec)
	}

	for _, urec := range usage.Records {
		for _, krec := range bySIM[Cell(urec, uSim)] {
			row := make([]string, len(out.Header))
			copy(row, urec)
			pos := len(usage.Header)
			for _, i := range kycCols {
				row[pos] = Cell(krec, i)
				pos++
			}
			row[ageIdx] = yearsCell(Cell(krec, kBirth), ref)
			row[tenureIdx] = yearsCell(Cell(krec, kAcq), ref)
			out.Records = append(out.Records, row)
		}
	}
	return out, nil
}

func yearsCell(date string, ref time.Time) string {
	if date == "" {
		return ""
	}
	t, err := ParseDate(date)
	if err != nil {
		return ""
	}
	return strconv.Itoa(WholeYears(t, ref))
}
