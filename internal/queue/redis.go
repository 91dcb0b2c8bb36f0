package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pricescout/crawler/internal/config"
	"pricescout/crawler/internal/domain/task"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// StreamClient is the part of redis.Client the queue uses.
type StreamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
}

type Queue interface {
	AddTask(ctx context.Context, task task.Task) (string, error) // Returns message ID
	// ReadTasks returns up to count new messages of the task type, or none after block.
	ReadTasks(ctx context.Context, taskType, consumer string, count int64, block time.Duration) ([]redis.XMessage, error)
	AckTask(ctx context.Context, taskType, msgID string) error
	EnsureStreamsExist(ctx context.Context) error
}

type RedisQueue struct {
	redisClient  StreamClient
	streamPrefix string
	groupName    string
}

func NewRedisQueue(redisClient StreamClient, cfg config.RedisConfig) *RedisQueue {
	return &RedisQueue{
		redisClient:  redisClient,
		streamPrefix: "pricescout:stream:",
		groupName:    cfg.ConsumerGroup,
	}
}

func (q *RedisQueue) streamName(taskType string) string {
	return q.streamPrefix + taskType
}

func (q *RedisQueue) AddTask(ctx context.Context, task task.Task) (string, error) {
	taskType := task.TaskType()
	streamName := q.streamName(taskType)

	taskValue, err := task.TaskValue()
	if err != nil {
		return "", fmt.Errorf("failed to serialize task: %w", err)
	}

	messageID, err := q.redisClient.XAdd(ctx, &redis.XAddArgs{
		Stream: streamName,
		Values: map[string]interface{}{
			"task_type": taskType,
			"task_data": string(taskValue),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to add task to Redis stream %s: %w", streamName, err)
	}

	log.Debugf("Added task %s to stream %s with message ID: %s", taskType, streamName, messageID)
	return messageID, nil
}

func (q *RedisQueue) ReadTasks(ctx context.Context, taskType, consumer string, count int64, block time.Duration) ([]redis.XMessage, error) {
	streamName := q.streamName(taskType)

	result, err := q.redisClient.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.groupName,
		Consumer: consumer,
		Streams:  []string{streamName, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // No new messages
		}
		return nil, fmt.Errorf("failed to read from Redis stream %s: %w", streamName, err)
	}

	if len(result) == 0 {
		return nil, nil
	}
	return result[0].Messages, nil
}

func (q *RedisQueue) AckTask(ctx context.Context, taskType, msgID string) error {
	streamName := q.streamName(taskType)
	if err := q.redisClient.XAck(ctx, streamName, q.groupName, msgID).Err(); err != nil {
		return fmt.Errorf("failed to ack %s on %s: %w", msgID, streamName, err)
	}
	return nil
}

// EnsureStreamsExist creates the price change stream and its consumer group.
func (q *RedisQueue) EnsureStreamsExist(ctx context.Context) error {
	streamName := q.streamName((&task.PriceChangeTask{}).TaskType())

	err := q.redisClient.XGroupCreateMkStream(ctx, streamName, q.groupName, "0").Err()
	if err != nil {
		if strings.HasPrefix(err.Error(), "BUSYGROUP") {
			log.Debugf("Group %s already exists for stream %s", q.groupName, streamName)
			return nil
		}
		return fmt.Errorf("failed to create consumer group for %s: %w", streamName, err)
	}

	log.Infof("✅ Stream %s and consumer group %s ready", streamName, q.groupName)
	return nil
}
