// Package store is the sqlite-backed credential and dataset store.
// Dates are stored as unix seconds at UTC midnight.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"eduassist-backend/services/sis"
)

//go:embed schema.sql
var Schema string

type Store struct {
	db *sql.DB
}

// New wraps an already opened database, the schema must have been
// executed. See configsqlite.Struct.OpenDB.
func New(db *sql.DB) Store {
	return Store{db: db}
}

func (s Store) GetCredential(ctx context.Context, subjectID string) (sis.Credential, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT key_ref, secret, data_key FROM credentials WHERE subject_id = ?`,
		subjectID,
	)
	cred := sis.Credential{SubjectID: subjectID}
	err := row.Scan(&cred.Envelope.KeyRef, &cred.Envelope.Secret, &cred.Envelope.DataKey)
	if err != nil {
		return sis.Credential{}, fmt.Errorf("get credential for %q: %w", subjectID, err)
	}
	return cred, nil
}

func (s Store) PutCredential(ctx context.Context, cred sis.Credential) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO credentials (subject_id, key_ref, secret, data_key)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (subject_id) DO UPDATE
		 SET key_ref = excluded.key_ref,
		     secret = excluded.secret,
		     data_key = excluded.data_key`,
		cred.SubjectID, cred.Envelope.KeyRef, cred.Envelope.Secret, cred.Envelope.DataKey,
	)
	return err
}

func (s Store) ListSubjects(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT subject_id FROM credentials ORDER BY subject_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subjects []string
	for rows.Next() {
		var id string
		err := rows.Scan(&id)
		if err != nil {
			return nil, err
		}
		subjects = append(subjects, id)
	}
	return subjects, rows.Err()
}

func (s Store) ReadDataset(ctx context.Context, subjectID string) (sis.Dataset, error) {
	var dataset sis.Dataset

	row := s.db.QueryRowContext(
		ctx,
		`SELECT name, class_name, seat_number FROM students WHERE subject_id = ?`,
		subjectID,
	)
	err := row.Scan(&dataset.Student.Name, &dataset.Student.ClassName, &dataset.Student.SeatNumber)
	if err != nil && err != sql.ErrNoRows {
		return sis.Dataset{}, err
	}

	examRows, err := s.db.QueryContext(
		ctx,
		`SELECT semester, name, exam_order, total, weighted_total, average,
		        weighted_average, class_rank, stream_rank
		 FROM exams WHERE subject_id = ?
		 ORDER BY semester, exam_order, name`,
		subjectID,
	)
	if err != nil {
		return sis.Dataset{}, err
	}
	defer examRows.Close()
	for examRows.Next() {
		var r sis.ExamRecord
		err := examRows.Scan(
			&r.Semester, &r.Name, &r.Order, &r.Total, &r.WeightedTotal,
			&r.Average, &r.WeightedAverage, &r.ClassRank, &r.StreamRank,
		)
		if err != nil {
			return sis.Dataset{}, err
		}
		dataset.Exams = append(dataset.Exams, r)
	}
	if err := examRows.Err(); err != nil {
		return sis.Dataset{}, err
	}

	subjectRows, err := s.db.QueryContext(
		ctx,
		`SELECT semester, exam, subject, score, class_average, rank, rank_of
		 FROM subject_scores WHERE subject_id = ?
		 ORDER BY semester, exam, subject`,
		subjectID,
	)
	if err != nil {
		return sis.Dataset{}, err
	}
	defer subjectRows.Close()
	for subjectRows.Next() {
		var r sis.SubjectRecord
		err := subjectRows.Scan(
			&r.Semester, &r.Exam, &r.Subject, &r.Score, &r.ClassAverage,
			&r.Rank, &r.RankOf,
		)
		if err != nil {
			return sis.Dataset{}, err
		}
		dataset.Subjects = append(dataset.Subjects, r)
	}
	if err := subjectRows.Err(); err != nil {
		return sis.Dataset{}, err
	}

	conductRows, err := s.db.QueryContext(
		ctx,
		`SELECT approval_date, incident_date, reason, level, count
		 FROM conduct_events WHERE subject_id = ?
		 ORDER BY approval_date, incident_date, reason, level`,
		subjectID,
	)
	if err != nil {
		return sis.Dataset{}, err
	}
	defer conductRows.Close()
	for conductRows.Next() {
		var r sis.ConductRecord
		var approval, incident int64
		err := conductRows.Scan(&approval, &incident, &r.Reason, &r.Level, &r.Count)
		if err != nil {
			return sis.Dataset{}, err
		}
		r.ApprovalDate = time.Unix(approval, 0).UTC()
		r.IncidentDate = time.Unix(incident, 0).UTC()
		dataset.Conduct = append(dataset.Conduct, r)
	}
	if err := conductRows.Err(); err != nil {
		return sis.Dataset{}, err
	}

	return dataset, nil
}

// Apply lands one diff in a single transaction. Either everything
// commits or the stored dataset stays exactly as it was.
func (s Store) Apply(ctx context.Context, subjectID string, diff sis.Diff) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if diff.Student != nil {
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO students (subject_id, name, class_name, seat_number)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT (subject_id) DO UPDATE
			 SET name = excluded.name,
			     class_name = excluded.class_name,
			     seat_number = excluded.seat_number`,
			subjectID, diff.Student.Name, diff.Student.ClassName, diff.Student.SeatNumber,
		)
		if err != nil {
			return err
		}
	}

	for _, r := range diff.CreateExams {
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO exams (subject_id, semester, name, exam_order, total,
			                    weighted_total, average, weighted_average,
			                    class_rank, stream_rank)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			subjectID, r.Semester, r.Name, r.Order, r.Total,
			r.WeightedTotal, r.Average, r.WeightedAverage,
			r.ClassRank, r.StreamRank,
		)
		if err != nil {
			return err
		}
	}
	for _, r := range diff.UpdateExams {
		_, err := tx.ExecContext(
			ctx,
			`UPDATE exams
			 SET exam_order = ?, total = ?, weighted_total = ?, average = ?,
			     weighted_average = ?, class_rank = ?, stream_rank = ?
			 WHERE subject_id = ? AND semester = ? AND name = ?`,
			r.Order, r.Total, r.WeightedTotal, r.Average,
			r.WeightedAverage, r.ClassRank, r.StreamRank,
			subjectID, r.Semester, r.Name,
		)
		if err != nil {
			return err
		}
	}
	for _, r := range diff.DeleteExams {
		_, err := tx.ExecContext(
			ctx,
			`DELETE FROM exams WHERE subject_id = ? AND semester = ? AND name = ?`,
			subjectID, r.Semester, r.Name,
		)
		if err != nil {
			return err
		}
	}

	for _, r := range diff.CreateSubjects {
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO subject_scores (subject_id, semester, exam, subject,
			                             score, class_average, rank, rank_of)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			subjectID, r.Semester, r.Exam, r.Subject,
			r.Score, r.ClassAverage, r.Rank, r.RankOf,
		)
		if err != nil {
			return err
		}
	}
	for _, r := range diff.UpdateSubjects {
		_, err := tx.ExecContext(
			ctx,
			`UPDATE subject_scores
			 SET score = ?, class_average = ?, rank = ?, rank_of = ?
			 WHERE subject_id = ? AND semester = ? AND exam = ? AND subject = ?`,
			r.Score, r.ClassAverage, r.Rank, r.RankOf,
			subjectID, r.Semester, r.Exam, r.Subject,
		)
		if err != nil {
			return err
		}
	}
	for _, r := range diff.DeleteSubjects {
		_, err := tx.ExecContext(
			ctx,
			`DELETE FROM subject_scores
			 WHERE subject_id = ? AND semester = ? AND exam = ? AND subject = ?`,
			subjectID, r.Semester, r.Exam, r.Subject,
		)
		if err != nil {
			return err
		}
	}

	for _, r := range diff.DeleteConduct {
		_, err := tx.ExecContext(
			ctx,
			`DELETE FROM conduct_events
			 WHERE subject_id = ? AND approval_date = ? AND incident_date = ?
			   AND reason = ? AND level = ?`,
			subjectID, r.ApprovalDate.Unix(), r.IncidentDate.Unix(), r.Reason, r.Level,
		)
		if err != nil {
			return err
		}
	}
	for _, r := range diff.CreateConduct {
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO conduct_events (subject_id, approval_date, incident_date,
			                             reason, level, count)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			subjectID, r.ApprovalDate.Unix(), r.IncidentDate.Unix(),
			r.Reason, r.Level, r.Count,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// DeleteSubject removes the subject's credential and entire dataset,
// the account-deletion path.
func (s Store) DeleteSubject(ctx context.Context, subjectID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"credentials", "students", "exams", "subject_scores", "conduct_events"} {
		_, err := tx.ExecContext(
			ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE subject_id = ?`, table),
			subjectID,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// interface conformance
var _ sis.CredentialStore = Store{}
var _ sis.DatasetStore = Store{}
