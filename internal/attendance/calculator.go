// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package attendance contains the pure attendance policy: display-name tag parsing,
// attended minutes, percentages and certificate eligibility.
package attendance

import (
	"math"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain/models"
)

// Percentage returns round(attended / total * 100) clamped to [0, 100].
// A non-positive total yields 0.
func Percentage(attendedMinutes, totalMinutes int) int {
	if totalMinutes <= 0 || attendedMinutes <= 0 {
		return 0
	}
	p := int(math.Round(float64(attendedMinutes) / float64(totalMinutes) * 100))
	return min(max(p, 0), 100)
}

// QualifiesForCertificate reports whether an attendance percentage unlocks the certificate.
func QualifiesForCertificate(percentage int) bool {
	return percentage >= models.CertificateThresholdPercentage
}

// AttendedMinutes converts a report duration in seconds into whole attended minutes.
func AttendedMinutes(durationSeconds int) int {
	if durationSeconds <= 0 {
		return 0
	}
	return durationSeconds / 60
}
