package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sharebox/internal/db"
)

// UploadFile stores content for userID and returns the new file id.
// With a content store the body is written there first and only its key is
// recorded in the row.
func (s *Store) UploadFile(ctx context.Context, userID int64, filename, content string) (int64, error) {
	var (
		fileData  sql.NullString
		objectKey sql.NullString
	)
	if s.content != nil {
		key := "files/" + uuid.NewString()
		if err := s.content.Put(ctx, key, []byte(content)); err != nil {
			return 0, fmt.Errorf("store file body: %w", err)
		}
		objectKey = sql.NullString{String: key, Valid: true}
	} else {
		fileData = sql.NullString{String: content, Valid: true}
	}

	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO files (user_id, filename, file_data, object_key, size_bytes)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		userID, filename, fileData, objectKey, int64(len(content)),
	).Scan(&id)
	if err != nil {
		if objectKey.Valid {
			s.removeObject(ctx, objectKey.String)
		}
		if isForeignKeyViolation(err) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("insert file: %w", err)
	}

	s.log.Debug("file uploaded",
		zap.Int64("file_id", id),
		zap.Int64("user_id", userID),
		zap.Int("size_bytes", len(content)),
	)
	return id, nil
}

// GetUserFiles lists files owned by userID, newest upload first.
func (s *Store) GetUserFiles(ctx context.Context, userID int64) ([]FileSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, upload_date, size_bytes
		   FROM files
		  WHERE user_id = $1
		  ORDER BY upload_date DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer rows.Close()

	files := []FileSummary{}
	for rows.Next() {
		var f FileSummary
		if err := rows.Scan(&f.ID, &f.Filename, &f.UploadDate, &f.SizeBytes); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}
	return files, nil
}

// GetSharedFiles lists files shared with userID, most recent share first.
func (s *Store) GetSharedFiles(ctx context.Context, userID int64) ([]SharedFile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT f.id, f.filename, f.upload_date, u.username, fs.shared_date
		   FROM file_shares fs
		   JOIN files f ON f.id = fs.file_id
		   JOIN users u ON u.id = f.user_id
		  WHERE fs.shared_with_user_id = $1
		  ORDER BY fs.shared_date DESC, f.id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query shared files: %w", err)
	}
	defer rows.Close()

	files := []SharedFile{}
	for rows.Next() {
		var f SharedFile
		if err := rows.Scan(&f.ID, &f.Filename, &f.UploadDate, &f.Owner, &f.SharedDate); err != nil {
			return nil, fmt.Errorf("scan shared file: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shared files: %w", err)
	}
	return files, nil
}

// GetFile returns a file's name and content. Access is not checked here;
// downloads are by id.
func (s *Store) GetFile(ctx context.Context, fileID int64) (File, error) {
	var (
		f         File
		fileData  sql.NullString
		objectKey sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT filename, file_data, object_key FROM files WHERE id = $1`,
		fileID,
	).Scan(&f.Filename, &fileData, &objectKey)
	if errors.Is(err, sql.ErrNoRows) {
		return File{}, ErrFileNotFound
	}
	if err != nil {
		return File{}, fmt.Errorf("query file: %w", err)
	}

	if !objectKey.Valid {
		f.Content = fileData.String
		return f, nil
	}
	if s.content == nil {
		return File{}, fmt.Errorf("file %d is in object storage but none is configured", fileID)
	}
	body, err := s.content.Get(ctx, objectKey.String)
	if err != nil {
		return File{}, fmt.Errorf("load file body: %w", err)
	}
	f.Content = string(body)
	return f, nil
}

// ShareFile grants sharedWithUserID access to a file owned by ownerID.
// The ownership check and the insert run in one transaction.
func (s *Store) ShareFile(ctx context.Context, fileID, ownerID, sharedWithUserID int64) error {
	if ownerID == sharedWithUserID {
		return ErrShareWithSelf
	}

	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM files WHERE id = $1 AND user_id = $2 FOR SHARE`,
			fileID, ownerID,
		).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrFileNotFound
		}
		if err != nil {
			return fmt.Errorf("check ownership: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO file_shares (file_id, shared_with_user_id) VALUES ($1, $2)`,
			fileID, sharedWithUserID,
		)
		switch {
		case err == nil:
			return nil
		case isUniqueViolation(err):
			return ErrAlreadyShared
		case isForeignKeyViolation(err):
			return ErrUserNotFound
		default:
			return fmt.Errorf("insert share: %w", err)
		}
	})
	if err != nil {
		return err
	}

	s.log.Debug("file shared",
		zap.Int64("file_id", fileID),
		zap.Int64("owner_id", ownerID),
		zap.Int64("shared_with_user_id", sharedWithUserID),
	)
	return nil
}

// DeleteFile removes a file owned by userID. Its shares go with it.
// ErrFileNotFound is returned when the id does not exist or is not owned.
func (s *Store) DeleteFile(ctx context.Context, fileID, userID int64) error {
	var objectKey sql.NullString
	err := s.db.QueryRowContext(ctx,
		`DELETE FROM files WHERE id = $1 AND user_id = $2 RETURNING object_key`,
		fileID, userID,
	).Scan(&objectKey)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrFileNotFound
	}
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}

	if objectKey.Valid {
		s.removeObject(ctx, objectKey.String)
	}

	s.log.Debug("file deleted", zap.Int64("file_id", fileID), zap.Int64("user_id", userID))
	return nil
}

// removeObject deletes a body whose row no longer references it. Failures
// leave an orphan object and are only logged.
func (s *Store) removeObject(ctx context.Context, key string) {
	if s.content == nil {
		return
	}
	if err := s.content.Remove(context.WithoutCancel(ctx), key); err != nil {
		s.log.Warn("orphan object left behind", zap.String("object_key", key), zap.Error(err))
	}
}
