package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/globalcomix/claude-agent/internal/config"
	"github.com/globalcomix/claude-agent/internal/logging"
	"github.com/globalcomix/claude-agent/internal/payload"
)

const (
	// jobLabel marks every worker Job regardless of kind
	jobLabel = "claude-review"

	// secretName holds the platform credentials handed to workers
	secretName = "claude-agent-secrets"

	jobTTLSeconds  = int32(900)
	jobBackoff     = int32(0)
	workdirSizeGiB = 2
)

// jobQueue is the queue surface the scheduler consumes
type jobQueue interface {
	PopBlocking(ctx context.Context, timeout time.Duration) (*payload.QueueItem, error)
	MarkProcessing(ctx context.Context, item *payload.QueueItem) error
	Complete(ctx context.Context, id string) error
	Fail(ctx context.Context, item *payload.QueueItem, reason string) error
}

// Scheduler drains the queue into single-shot Kubernetes Jobs.
// Only one worker Job runs at a time; the next item is not popped while a
// Job is still active.
type Scheduler struct {
	kube  kubernetes.Interface
	queue jobQueue
	cfg   config.SchedulerConfig

	// tunables, shortened in tests
	idleDelay    time.Duration
	popTimeout   time.Duration
	pollInterval time.Duration
	jobTimeout   time.Duration
}

// New creates a scheduler
func New(kube kubernetes.Interface, q jobQueue, cfg config.SchedulerConfig) *Scheduler {
	return &Scheduler{
		kube:         kube,
		queue:        q,
		cfg:          cfg,
		idleDelay:    10 * time.Second,
		popTimeout:   30 * time.Second,
		pollInterval: 5 * time.Second,
		jobTimeout:   15 * time.Minute,
	}
}

// Run drains the queue until the context is cancelled
func (s *Scheduler) Run(ctx context.Context) error {
	logging.Info("Scheduler started in namespace %s", s.cfg.Namespace)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		active, err := s.hasActiveJob(ctx)
		if err != nil {
			logging.Error("Checking active jobs: %v", err)
			s.sleep(ctx, s.idleDelay)
			continue
		}
		if active {
			s.sleep(ctx, s.idleDelay)
			continue
		}

		item, err := s.queue.PopBlocking(ctx, s.popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logging.Error("Popping queue item: %v", err)
			s.sleep(ctx, s.idleDelay)
			continue
		}
		if item == nil {
			continue
		}

		if err := s.dispatch(ctx, item); err != nil {
			logging.JobError(item.ID, "Dispatch failed", err)
		}
	}
}

func (s *Scheduler) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// hasActiveJob reports whether any worker Job is still running
func (s *Scheduler) hasActiveJob(ctx context.Context) (bool, error) {
	jobs, err := s.kube.BatchV1().Jobs(s.cfg.Namespace).List(ctx, metav1.ListOptions{
		LabelSelector: "app=" + jobLabel,
	})
	if err != nil {
		return false, err
	}
	for _, job := range jobs.Items {
		if job.Status.Active > 0 {
			return true, nil
		}
	}
	return false, nil
}

// dispatch marks the item as processing, spawns its Job and waits for the
// outcome
func (s *Scheduler) dispatch(ctx context.Context, item *payload.QueueItem) error {
	if err := s.queue.MarkProcessing(ctx, item); err != nil {
		return fmt.Errorf("marking processing: %w", err)
	}

	job, err := s.buildJob(item)
	if err != nil {
		failErr := s.queue.Fail(ctx, item, err.Error())
		if failErr != nil {
			logging.JobError(item.ID, "Recording failure", failErr)
		}
		return err
	}

	created, err := s.kube.BatchV1().Jobs(s.cfg.Namespace).Create(ctx, job, metav1.CreateOptions{})
	if err != nil {
		failErr := s.queue.Fail(ctx, item, fmt.Sprintf("creating job: %v", err))
		if failErr != nil {
			logging.JobError(item.ID, "Recording failure", failErr)
		}
		return fmt.Errorf("creating job: %w", err)
	}

	logging.JobInfo(item.ID, "Spawned job "+created.Name+" for "+item.Payload.Describe())
	return s.waitForJob(ctx, created.Name, item)
}

// waitForJob polls the Job until it finishes, times out or disappears
func (s *Scheduler) waitForJob(ctx context.Context, name string, item *payload.QueueItem) error {
	deadline := time.Now().Add(s.jobTimeout)
	notFound := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if time.Now().After(deadline) {
			// Kill the stuck Job so the next item can run
			policy := metav1.DeletePropagationBackground
			_ = s.kube.BatchV1().Jobs(s.cfg.Namespace).Delete(ctx, name, metav1.DeleteOptions{PropagationPolicy: &policy})
			return s.queue.Fail(ctx, item, fmt.Sprintf("job %s timed out after %s", name, s.jobTimeout))
		}

		job, err := s.kube.BatchV1().Jobs(s.cfg.Namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			if apierrors.IsNotFound(err) {
				notFound++
				if notFound >= 3 {
					return s.queue.Fail(ctx, item, fmt.Sprintf("job %s disappeared", name))
				}
			} else {
				logging.JobWarn(item.ID, "Polling job: "+err.Error())
			}
			s.sleep(ctx, s.pollInterval)
			continue
		}
		notFound = 0

		if job.Status.Succeeded > 0 {
			logging.JobInfo(item.ID, "Job "+name+" completed")
			return s.queue.Complete(ctx, item.ID)
		}
		if job.Status.Failed > 0 {
			return s.queue.Fail(ctx, item, fmt.Sprintf("job %s failed", name))
		}

		s.sleep(ctx, s.pollInterval)
	}
}

// jobName builds a DNS-safe Job name from the payload and queue ID
func jobName(item *payload.QueueItem) string {
	id := item.ID
	if len(id) > 8 {
		id = id[:8]
	}
	name := fmt.Sprintf("%s-%s-%s", item.Payload.JobPrefix(), sanitizeName(item.Payload.IssueID()), id)
	if len(name) > 63 {
		name = name[:63]
	}
	return strings.Trim(name, "-")
}

// sanitizeName lowercases and strips characters Kubernetes rejects
func sanitizeName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

func (s *Scheduler) buildJob(item *payload.QueueItem) (*batchv1.Job, error) {
	envelope, err := payload.EncodeEnvelope(*item)
	if err != nil {
		return nil, fmt.Errorf("encoding payload envelope: %w", err)
	}

	name := jobName(item)
	runAs := int64(1000)
	optional := true

	secretEnv := func(envName, key string, opt bool) corev1.EnvVar {
		source := &corev1.EnvVarSource{
			SecretKeyRef: &corev1.SecretKeySelector{
				LocalObjectReference: corev1.LocalObjectReference{Name: secretName},
				Key:                  key,
			},
		}
		if opt {
			source.SecretKeyRef.Optional = &optional
		}
		return corev1.EnvVar{Name: envName, ValueFrom: source}
	}

	sizeLimit := resource.MustParse(fmt.Sprintf("%dGi", workdirSizeGiB))
	ttl := jobTTLSeconds
	backoff := jobBackoff

	job := &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: s.cfg.Namespace,
			Labels: map[string]string{
				"app":      jobLabel,
				"queue-id": sanitizeName(item.ID),
			},
		},
		Spec: batchv1.JobSpec{
			TTLSecondsAfterFinished: &ttl,
			BackoffLimit:            &backoff,
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: map[string]string{"app": jobLabel},
				},
				Spec: corev1.PodSpec{
					RestartPolicy: corev1.RestartPolicyNever,
					SecurityContext: &corev1.PodSecurityContext{
						RunAsUser:  &runAs,
						RunAsGroup: &runAs,
						FSGroup:    &runAs,
					},
					Containers: []corev1.Container{
						{
							Name:  "worker",
							Image: s.cfg.WorkerImage,
							Env: []corev1.EnvVar{
								{Name: "REVIEW_PAYLOAD", Value: envelope},
								secretEnv("ANTHROPIC_API_KEY", "anthropic-api-key", false),
								secretEnv("GITLAB_TOKEN", "gitlab-token", false),
								secretEnv("GITHUB_TOKEN", "github-token", true),
								secretEnv("SENTRY_AUTH_TOKEN", "sentry-auth-token", true),
							},
							VolumeMounts: []corev1.VolumeMount{
								{Name: "workdir", MountPath: "/work"},
							},
							Resources: corev1.ResourceRequirements{
								Requests: corev1.ResourceList{
									corev1.ResourceMemory: resource.MustParse("512Mi"),
									corev1.ResourceCPU:    resource.MustParse("500m"),
								},
								Limits: corev1.ResourceList{
									corev1.ResourceMemory: resource.MustParse("4Gi"),
									corev1.ResourceCPU:    resource.MustParse("2000m"),
								},
							},
						},
					},
					Volumes: []corev1.Volume{
						{
							Name: "workdir",
							VolumeSource: corev1.VolumeSource{
								EmptyDir: &corev1.EmptyDirVolumeSource{SizeLimit: &sizeLimit},
							},
						},
					},
				},
			},
		},
	}
	return job, nil
}
