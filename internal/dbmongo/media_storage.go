package dbmongo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"gosocial/internal/common"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MediaStorage struct {
	gridFS *gridfs.Bucket
}

func NewMediaStorage(mongoClient *MongoClient) *MediaStorage {
	return &MediaStorage{
		gridFS: mongoClient.GridFS,
	}
}

// UploadFile stores content and returns a reference suitable for a media message.
func (ms *MediaStorage) UploadFile(ctx context.Context, filename, mimeType, uploaderID string, content io.Reader) (*MediaRef, error) {
	metadata := bson.M{
		"kind":        common.DetectMessageKind(mimeType).String(),
		"mime_type":   mimeType,
		"uploaded_by": uploaderID,
		"uploaded_at": time.Now(),
	}

	opts := options.GridFSUpload().SetMetadata(metadata)
	stream, err := ms.gridFS.OpenUploadStream(filename, opts)
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}

	if _, err := io.Copy(stream, content); err != nil {
		_ = stream.Abort()
		return nil, fmt.Errorf("file copy failed: %w", err)
	}
	if err := stream.Close(); err != nil {
		return nil, fmt.Errorf("upload close failed: %w", err)
	}

	id := stream.FileID.(primitive.ObjectID).Hex()
	return &MediaRef{
		FileID:   id,
		URL:      "/media/" + id,
		MimeType: mimeType,
	}, nil
}

// DeleteFile removes a blob. A blob that is already gone is not an error.
func (ms *MediaStorage) DeleteFile(ctx context.Context, fileID string) error {
	objectID, err := primitive.ObjectIDFromHex(fileID)
	if err != nil {
		return fmt.Errorf("invalid file ID: %w", err)
	}
	if err := ms.gridFS.DeleteContext(ctx, objectID); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
		return fmt.Errorf("delete failed: %w", err)
	}
	return nil
}

// MediaFile describes a stored blob.
type MediaFile struct {
	FileID   string
	Filename string
	MimeType string
	Size     int64
}

// DownloadFile opens a blob for streaming. The caller closes the reader.
func (ms *MediaStorage) DownloadFile(ctx context.Context, fileID string) (io.ReadCloser, *MediaFile, error) {
	objectID, err := primitive.ObjectIDFromHex(fileID)
	if err != nil {
		return nil, nil, common.NotFound(common.ReasonMediaNotFound, "media not found")
	}

	stream, err := ms.gridFS.OpenDownloadStream(objectID)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return nil, nil, common.NotFound(common.ReasonMediaNotFound, "media not found")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("download failed: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = stream.SetReadDeadline(deadline)
	}

	file := stream.GetFile()
	info := &MediaFile{FileID: fileID, Filename: file.Name, Size: file.Length}
	var meta struct {
		MimeType string `bson:"mime_type"`
	}
	if file.Metadata != nil && bson.Unmarshal(file.Metadata, &meta) == nil {
		info.MimeType = meta.MimeType
	}
	return stream, info, nil
}

// FileOwner returns the id of the user who uploaded the blob.
func (ms *MediaStorage) FileOwner(ctx context.Context, fileID string) (string, error) {
	objectID, err := primitive.ObjectIDFromHex(fileID)
	if err != nil {
		return "", common.NotFound(common.ReasonMediaNotFound, "media not found")
	}

	cursor, err := ms.gridFS.FindContext(ctx, bson.M{"_id": objectID})
	if err != nil {
		return "", fmt.Errorf("media lookup failed: %w", err)
	}
	defer cursor.Close(ctx)

	if !cursor.Next(ctx) {
		if err := cursor.Err(); err != nil {
			return "", fmt.Errorf("media lookup failed: %w", err)
		}
		return "", common.NotFound(common.ReasonMediaNotFound, "media not found")
	}
	var file struct {
		Metadata struct {
			UploadedBy string `bson:"uploaded_by"`
		} `bson:"metadata"`
	}
	if err := cursor.Decode(&file); err != nil {
		return "", fmt.Errorf("media decode failed: %w", err)
	}
	return file.Metadata.UploadedBy, nil
}
