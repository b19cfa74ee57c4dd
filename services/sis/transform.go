package sis

import (
	"eduassist-backend/lib/scrapers/eschool"
)

// profile field labels the student record is built from
const (
	classLabel = "班級"
	seatLabel  = "座號"
)

// StudentFromProfile maps the profile page's label/value pairs onto
// the typed student record. Missing labels map to empty strings, the
// parser has already guaranteed the structurally required fields.
func StudentFromProfile(profile *eschool.Profile) StudentRecord {
	return StudentRecord{
		Name:       profile.Name,
		ClassName:  profile.Fields[classLabel],
		SeatNumber: profile.Fields[seatLabel],
	}
}

// DatasetFromDocuments flattens the three parsed documents of one
// fetch cycle into the canonical record shapes the store persists.
// The parsed DTOs are discarded after this.
func DatasetFromDocuments(profile *eschool.Profile, scores *eschool.ScoreDocument, conduct []eschool.ConductEvent) Dataset {
	dataset := Dataset{
		Student: StudentFromProfile(profile),
	}

	for _, exam := range scores.Exams {
		dataset.Exams = append(dataset.Exams, ExamRecord{
			Semester:        scores.Semester,
			Name:            exam.Name,
			Order:           exam.Order,
			Total:           exam.Total,
			WeightedTotal:   exam.WeightedTotal,
			Average:         exam.Average,
			WeightedAverage: exam.WeightedAverage,
			ClassRank:       exam.ClassRank,
			StreamRank:      exam.StreamRank,
		})
		for _, subject := range exam.Subjects {
			dataset.Subjects = append(dataset.Subjects, SubjectRecord{
				Semester:     scores.Semester,
				Exam:         exam.Name,
				Subject:      subject.Subject,
				Score:        subject.Score,
				ClassAverage: subject.ClassAverage,
				Rank:         subject.Rank,
				RankOf:       subject.RankOf,
			})
		}
	}

	for _, event := range conduct {
		dataset.Conduct = append(dataset.Conduct, ConductRecord{
			ApprovalDate: event.ApprovalDate,
			IncidentDate: event.IncidentDate,
			Reason:       event.Reason,
			Level:        string(event.Level),
			Count:        event.Count,
		})
	}

	return dataset
}
