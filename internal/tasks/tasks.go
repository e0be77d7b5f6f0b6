package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register decoders
	"image/jpeg"
	_ "image/png"
	"io"
	"log"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hibiken/asynq"
	"github.com/nfnt/resize"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Maksud444/market-cairo-server/internal/config"
	"github.com/Maksud444/market-cairo-server/internal/email"
	"github.com/Maksud444/market-cairo-server/internal/realtime"
	"github.com/Maksud444/market-cairo-server/internal/services"
	"github.com/Maksud444/market-cairo-server/internal/storage"
)

// Task types.
const (
	TypeEmailDelivery = "email:deliver"
	TypeImageProcess  = "image:process"
	TypeListingPurge  = "listing:purge"
)

// --- Task Client (Enqueuing tasks) ---

func NewClient(rdb *redis.Client) *asynq.Client {
	clientOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}
	return asynq.NewClient(clientOpt)
}

// --- Dispatcher ---

// Dispatcher routes side effects from the service layer: durable work (email,
// image normalization) goes to the asynq queue, realtime pushes go straight
// to the in-process registry.
type Dispatcher struct {
	client   *asynq.Client
	registry *realtime.Registry
}

// NewDispatcher creates a Dispatcher. registry may be nil in worker-only
// processes; PushEvent then becomes a no-op.
func NewDispatcher(client *asynq.Client, registry *realtime.Registry) *Dispatcher {
	return &Dispatcher{client: client, registry: registry}
}

// EnqueueEmail queues one email for best-effort delivery.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, payload services.EmailPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}
	task := asynq.NewTask(TypeEmailDelivery, data)
	if _, err := d.client.EnqueueContext(ctx, task, asynq.Queue("default"), asynq.MaxRetry(3)); err != nil {
		return fmt.Errorf("failed to enqueue email task: %w", err)
	}
	return nil
}

// ImageTaskPayload identifies one uploaded image to normalize.
type ImageTaskPayload struct {
	S3Key     string `json:"s3_key"`
	ListingID string `json:"listing_id"`
}

// EnqueueImageProcess queues normalization (size check + resize) of an
// uploaded listing image.
func (d *Dispatcher) EnqueueImageProcess(ctx context.Context, listingID primitive.ObjectID, imageKey string) error {
	data, err := json.Marshal(ImageTaskPayload{S3Key: imageKey, ListingID: listingID.Hex()})
	if err != nil {
		return fmt.Errorf("failed to marshal image payload: %w", err)
	}
	task := asynq.NewTask(TypeImageProcess, data)
	if _, err := d.client.EnqueueContext(ctx, task, asynq.Queue("images"), asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("failed to enqueue image task: %w", err)
	}
	return nil
}

// PushEvent delivers a realtime frame to the user if connected. At-most-once,
// best-effort.
func (d *Dispatcher) PushEvent(userID primitive.ObjectID, event services.RealtimeEvent) {
	if d.registry == nil {
		return
	}
	d.registry.Push(userID, event)
}

// IsOnline reports live-connection presence. Always false in worker-only
// processes, which hold no registry.
func (d *Dispatcher) IsOnline(userID primitive.ObjectID) bool {
	if d.registry == nil {
		return false
	}
	return d.registry.IsOnline(userID)
}

// EnqueuePurge queues one retention sweep.
func (d *Dispatcher) EnqueuePurge(ctx context.Context) error {
	task := asynq.NewTask(TypeListingPurge, nil)
	if _, err := d.client.EnqueueContext(ctx, task, asynq.Queue("default"), asynq.MaxRetry(0)); err != nil {
		return fmt.Errorf("failed to enqueue purge task: %w", err)
	}
	return nil
}

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of tasks. It holds the dependencies
// needed by the task handlers.
type TaskProcessor struct {
	cfg            *config.Config
	emailSender    email.Sender
	storageService storage.IS3Storage
	listingService services.IListingService
	s3Client       *s3.Client
}

func NewTaskProcessor(
	cfg *config.Config,
	emailSender email.Sender,
	storageService storage.IS3Storage,
	listingService services.IListingService,
) *TaskProcessor {
	var s3Client *s3.Client
	if storageService != nil {
		s3Client = storageService.Client()
	}
	return &TaskProcessor{
		cfg:            cfg,
		emailSender:    emailSender,
		storageService: storageService,
		listingService: listingService,
		s3Client:       s3Client,
	}
}

// SetupServer configures an Asynq server and the handler mux. The caller runs
// and shuts the server down.
func SetupServer(rdb *redis.Client, processor *TaskProcessor) (*asynq.Server, *asynq.ServeMux) {
	serverOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}

	srv := asynq.NewServer(
		serverOpt,
		asynq.Config{
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"images":   5,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("[Asynq Error] Task Type: %s, Payload: %s, Error: %v", task.Type(), string(task.Payload()), err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeEmailDelivery, processor.HandleEmailDeliveryTask)
	mux.HandleFunc(TypeImageProcess, processor.HandleImageProcessTask)
	mux.HandleFunc(TypeListingPurge, processor.HandleListingPurgeTask)

	return srv, mux
}

// --- Task Handlers ---

// HandleEmailDeliveryTask builds the raw message and hands it to the sender.
func (p *TaskProcessor) HandleEmailDeliveryTask(ctx context.Context, t *asynq.Task) error {
	var payload services.EmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal email task payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.To == "" {
		return fmt.Errorf("email task missing recipient: %w", asynq.SkipRetry)
	}

	fromAddress := p.cfg.SmtpFromAddress

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("To: %s\r\n", payload.To))
	sb.WriteString(fmt.Sprintf("From: %s\r\n", fromAddress))
	sb.WriteString(fmt.Sprintf("Subject: %s\r\n", payload.Subject))
	sb.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(payload.BodyText)
	sb.WriteString("\r\n")

	if err := p.emailSender.Send(ctx, []string{payload.To}, payload.Subject, []byte(sb.String())); err != nil {
		log.Printf("Email sending failed for %s: %v", payload.To, err)
		return err
	}
	return nil
}

// HandleImageProcessTask normalizes one uploaded listing image: rejects
// oversized files, downsizes anything over the max dimension and overwrites
// the original object in place. The listing already references the key, so no
// document update happens here.
func (p *TaskProcessor) HandleImageProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload ImageTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal image task payload: %v: %w", err, asynq.SkipRetry)
	}
	if p.s3Client == nil {
		log.Printf("S3 not configured, skipping image task for key %s", payload.S3Key)
		return nil
	}

	getObjectOutput, err := p.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.cfg.AwsS3Bucket),
		Key:    aws.String(payload.S3Key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			log.Printf("S3 object %s not found, likely upload failed or key incorrect.", payload.S3Key)
			return fmt.Errorf("s3 object not found: %w", asynq.SkipRetry)
		}
		return fmt.Errorf("failed to download image from S3: %w", err)
	}
	defer getObjectOutput.Body.Close()

	imgData, err := io.ReadAll(getObjectOutput.Body)
	if err != nil {
		return fmt.Errorf("failed to read image data for key %s: %w", payload.S3Key, err)
	}

	maxSizeBytes := int64(p.cfg.ImageMaxSizeMB) * 1024 * 1024
	if int64(len(imgData)) > maxSizeBytes {
		log.Printf("Image %s exceeds max size (%d > %d bytes), deleting.", payload.S3Key, len(imgData), maxSizeBytes)
		if delErr := p.storageService.DeleteObject(ctx, payload.S3Key); delErr != nil {
			log.Printf("Failed to delete oversized object %s: %v", payload.S3Key, delErr)
		}
		return fmt.Errorf("image exceeds max size: %w", asynq.SkipRetry)
	}

	img, format, err := image.Decode(bytes.NewReader(imgData))
	if err != nil {
		return fmt.Errorf("unsupported image format or corrupt image %s: %w", payload.S3Key, asynq.SkipRetry)
	}

	maxDim := uint(p.cfg.ImageMaxDimension)
	if uint(img.Bounds().Dx()) <= maxDim && uint(img.Bounds().Dy()) <= maxDim {
		log.Printf("Image %s (%s, %dx%d) within limits, no processing needed.",
			payload.S3Key, format, img.Bounds().Dx(), img.Bounds().Dy())
		return nil
	}

	resizedImg := resize.Thumbnail(maxDim, maxDim, img, resize.Lanczos3)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resizedImg, &jpeg.Options{Quality: 85}); err != nil {
		return fmt.Errorf("failed to re-encode resized image %s: %w", payload.S3Key, err)
	}

	_, err = p.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.cfg.AwsS3Bucket),
		Key:         aws.String(payload.S3Key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("image/jpeg"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload processed image %s: %w", payload.S3Key, err)
	}

	log.Printf("Image task processed: Key=%s resized to %dx%d, ListingID=%s",
		payload.S3Key, resizedImg.Bounds().Dx(), resizedImg.Bounds().Dy(), payload.ListingID)
	return nil
}

// HandleListingPurgeTask runs one retention sweep over soft-deleted listings.
func (p *TaskProcessor) HandleListingPurgeTask(ctx context.Context, t *asynq.Task) error {
	purged, err := p.listingService.PurgeExpired(ctx)
	if err != nil {
		return fmt.Errorf("retention sweep failed: %w", err)
	}
	log.Printf("Retention sweep complete, purged %d listing(s).", purged)
	return nil
}
