package sis

// Diff is the partition of changes between the persisted dataset and a
// freshly parsed one. Delete slices carry the full persisted records,
// not bare keys, so applying a diff needs no second read.
type Diff struct {
	// Student is non-nil when the profile-derived record changed.
	Student *StudentRecord

	CreateExams []ExamRecord
	UpdateExams []ExamRecord
	DeleteExams []ExamRecord

	CreateSubjects []SubjectRecord
	UpdateSubjects []SubjectRecord
	DeleteSubjects []SubjectRecord

	CreateConduct []ConductRecord
	DeleteConduct []ConductRecord
}

func (d Diff) Empty() bool {
	return d.Student == nil &&
		len(d.CreateExams) == 0 && len(d.UpdateExams) == 0 && len(d.DeleteExams) == 0 &&
		len(d.CreateSubjects) == 0 && len(d.UpdateSubjects) == 0 && len(d.DeleteSubjects) == 0 &&
		len(d.CreateConduct) == 0 && len(d.DeleteConduct) == 0
}

// ComputeDiff compares two datasets by natural key. Exams and subjects
// with a matching key but differing derived fields become updates.
// Conduct records have no update partition: a count change on an
// otherwise identical event is a delete of the old record plus a
// create of the new one. Running ComputeDiff over two identical
// datasets yields an empty diff.
func ComputeDiff(persisted, parsed Dataset) Diff {
	var diff Diff

	if persisted.Student != parsed.Student {
		student := parsed.Student
		diff.Student = &student
	}

	oldExams := make(map[string]ExamRecord, len(persisted.Exams))
	for _, r := range persisted.Exams {
		oldExams[r.NaturalKey()] = r
	}
	seenExams := make(map[string]bool, len(parsed.Exams))
	for _, r := range parsed.Exams {
		key := r.NaturalKey()
		seenExams[key] = true
		old, ok := oldExams[key]
		if !ok {
			diff.CreateExams = append(diff.CreateExams, r)
		} else if old != r {
			diff.UpdateExams = append(diff.UpdateExams, r)
		}
	}
	for _, r := range persisted.Exams {
		if !seenExams[r.NaturalKey()] {
			diff.DeleteExams = append(diff.DeleteExams, r)
		}
	}

	oldSubjects := make(map[string]SubjectRecord, len(persisted.Subjects))
	for _, r := range persisted.Subjects {
		oldSubjects[r.NaturalKey()] = r
	}
	seenSubjects := make(map[string]bool, len(parsed.Subjects))
	for _, r := range parsed.Subjects {
		key := r.NaturalKey()
		seenSubjects[key] = true
		old, ok := oldSubjects[key]
		if !ok {
			diff.CreateSubjects = append(diff.CreateSubjects, r)
		} else if old != r {
			diff.UpdateSubjects = append(diff.UpdateSubjects, r)
		}
	}
	for _, r := range persisted.Subjects {
		if !seenSubjects[r.NaturalKey()] {
			diff.DeleteSubjects = append(diff.DeleteSubjects, r)
		}
	}

	oldConduct := make(map[string]ConductRecord, len(persisted.Conduct))
	for _, r := range persisted.Conduct {
		oldConduct[r.NaturalKey()] = r
	}
	seenConduct := make(map[string]bool, len(parsed.Conduct))
	for _, r := range parsed.Conduct {
		key := r.NaturalKey()
		seenConduct[key] = true
		old, ok := oldConduct[key]
		if !ok {
			diff.CreateConduct = append(diff.CreateConduct, r)
		} else if old.Count != r.Count {
			diff.DeleteConduct = append(diff.DeleteConduct, old)
			diff.CreateConduct = append(diff.CreateConduct, r)
		}
	}
	for _, r := range persisted.Conduct {
		if !seenConduct[r.NaturalKey()] {
			diff.DeleteConduct = append(diff.DeleteConduct, r)
		}
	}

	return diff
}
