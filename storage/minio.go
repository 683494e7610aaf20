package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"time"

	"Lyra/config"
	"Lyra/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// backupPrefix 备份文件在存储桶中的目录
const backupPrefix = "playlists/"

// ObjectInfo 文件信息
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// BucketStats 存储桶统计信息
type BucketStats struct {
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
}

// Backup stores playlist files in a MinIO bucket.
type Backup struct {
	client *minio.Client
	bucket string
	region string
}

// NewBackup creates a backup client from the MinIO settings.
func NewBackup(cfg *config.Config) (*Backup, error) {
	if !cfg.BackupEnabled() {
		return nil, errors.New("MinIO endpoint not configured (MINIO_ENDPOINT)")
	}
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 MinIO 客户端失败: %w", err)
	}
	return &Backup{client: client, bucket: cfg.MinioBucket, region: cfg.MinioRegion}, nil
}

// ObjectName returns the key a local playlist file is stored under.
func ObjectName(file string) string {
	return backupPrefix + filepath.Base(file)
}

// ensureBucket 如果存储桶不存在，尝试创建它
func (b *Backup) ensureBucket(ctx context.Context) error {
	exists, err := b.client.BucketExists(ctx, b.bucket)
	if err != nil {
		return fmt.Errorf("检查存储桶失败: %w", err)
	}
	if exists {
		return nil
	}
	if err := b.client.MakeBucket(ctx, b.bucket, minio.MakeBucketOptions{Region: b.region}); err != nil {
		return fmt.Errorf("创建存储桶失败: %w", err)
	}
	logger.Info("created bucket", logger.String("bucket", b.bucket))
	return nil
}

// Push uploads file and returns the object key.
func (b *Backup) Push(ctx context.Context, file string) (string, error) {
	if err := b.ensureBucket(ctx); err != nil {
		return "", err
	}
	key := ObjectName(file)
	info, err := b.client.FPutObject(ctx, b.bucket, key, file, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return "", fmt.Errorf("上传 %s 失败: %w", file, err)
	}
	logger.Info("playlist backed up",
		logger.String("bucket", b.bucket),
		logger.String("key", key),
		logger.Int64("size", info.Size))
	return key, nil
}

// Pull downloads the backup of file over file. name selects another object
// under the backup prefix; empty means the one matching file.
func (b *Backup) Pull(ctx context.Context, file, name string) (string, error) {
	key := ObjectName(file)
	if name != "" {
		key = backupPrefix + path.Base(name)
	}
	if err := b.client.FGetObject(ctx, b.bucket, key, file, minio.GetObjectOptions{}); err != nil {
		return "", fmt.Errorf("下载 %s 失败: %w", key, err)
	}
	logger.Info("playlist restored", logger.String("key", key), logger.String("file", file))
	return key, nil
}

// List returns the stored backups.
func (b *Backup) List(ctx context.Context) ([]ObjectInfo, *BucketStats, error) {
	stats := &BucketStats{}
	var objects []ObjectInfo

	objectCh := b.client.ListObjects(ctx, b.bucket, minio.ListObjectsOptions{
		Prefix:    backupPrefix,
		Recursive: true,
	})
	for object := range objectCh {
		if object.Err != nil {
			return nil, nil, fmt.Errorf("列出对象时出错: %w", object.Err)
		}
		stats.TotalObjects++
		stats.TotalSize += object.Size
		if object.LastModified.After(stats.LastModified) {
			stats.LastModified = object.LastModified
		}
		objects = append(objects, ObjectInfo{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
		})
	}
	return objects, stats, nil
}

// FormatSize 格式化文件大小
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
