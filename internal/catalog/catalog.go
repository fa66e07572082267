// Package catalog holds the static, gender-partitioned medical service
// catalog. Entries are fixed for the process lifetime; there is no backing
// store and no mutation path.
package catalog

import (
	"errors"
	"fmt"

	"github.com/iliyamo/clinic-booking-saga/internal/model"
)

// ErrUnknownGender is returned when a lookup names a partition that does not
// exist in the catalog.
var ErrUnknownGender = errors.New("unknown gender")

var maleServices = []model.MedicalService{
	{ID: "m1", Name: "General Health Checkup", Price: 500.0, Description: "Comprehensive health screening including blood tests and vitals"},
	{ID: "m2", Name: "Cardiac Screening", Price: 800.0, Description: "ECG, stress test, and heart health evaluation"},
	{ID: "m3", Name: "Prostate Examination", Price: 600.0, Description: "PSA test and prostate health screening"},
	{ID: "m4", Name: "Diabetes Screening", Price: 400.0, Description: "Fasting glucose, HbA1c, and related tests"},
	{ID: "m5", Name: "Full Body Scan", Price: 1500.0, Description: "Complete CT scan and MRI imaging"},
	{ID: "m6", Name: "Liver Function Test", Price: 350.0, Description: "Complete liver panel and hepatitis screening"},
}

var femaleServices = []model.MedicalService{
	{ID: "f1", Name: "General Health Checkup", Price: 500.0, Description: "Comprehensive health screening including blood tests and vitals"},
	{ID: "f2", Name: "Mammography", Price: 700.0, Description: "Breast cancer screening and imaging"},
	{ID: "f3", Name: "Gynecological Exam", Price: 650.0, Description: "Pap smear, pelvic exam, and reproductive health check"},
	{ID: "f4", Name: "Bone Density Scan", Price: 550.0, Description: "DEXA scan for osteoporosis screening"},
	{ID: "f5", Name: "Thyroid Panel", Price: 450.0, Description: "Complete thyroid function tests"},
	{ID: "f6", Name: "Full Body Scan", Price: 1500.0, Description: "Complete CT scan and MRI imaging"},
	{ID: "f7", Name: "Prenatal Checkup", Price: 800.0, Description: "Complete pregnancy health evaluation"},
}

// ByGender returns the catalog partition for the given gender.
func ByGender(g model.Gender) ([]model.MedicalService, error) {
	switch g {
	case model.GenderMale:
		return maleServices, nil
	case model.GenderFemale:
		return femaleServices, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownGender, g)
	}
}

// Resolve looks up each id in the gender's partition, preserving the order in
// which the ids were submitted. An id missing from the partition fails the
// whole lookup; partial resolution is never returned.
func Resolve(ids []string, g model.Gender) ([]model.MedicalService, error) {
	partition, err := ByGender(g)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.MedicalService, len(partition))
	for _, s := range partition {
		byID[s.ID] = s
	}
	resolved := make([]model.MedicalService, 0, len(ids))
	for _, id := range ids {
		s, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("service not found: %s", id)
		}
		resolved = append(resolved, s)
	}
	return resolved, nil
}

// BasePrice sums the prices of the given services.
func BasePrice(services []model.MedicalService) float64 {
	var total float64
	for _, s := range services {
		total += s.Price
	}
	return total
}
