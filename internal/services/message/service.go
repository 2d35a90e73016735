package message

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"grove/internal/domain"
)

// defaultParallelism caps how many groups are processed at once.
const defaultParallelism = 4

var (
	// ErrUnsupportedMessage is reported for messages that do not belong to a
	// group, such as Welcomes, which need a ratchet tree to be joined.
	ErrUnsupportedMessage = errors.New("message is not a group handshake")
)

// Service processes inbound messages through a domain.GroupService.
type Service struct {
	groups      domain.GroupService
	log         *slog.Logger
	parallelism int
}

// New constructs a message Service. parallelism < 1 selects the default.
func New(groups domain.GroupService, log *slog.Logger, parallelism int) *Service {
	if log == nil {
		log = slog.Default()
	}
	if parallelism < 1 {
		parallelism = defaultParallelism
	}
	return &Service{groups: groups, log: log, parallelism: parallelism}
}

// Process applies msgs and returns one result per message, in input order.
//
// Per-message protocol failures land in ProcessResult.Err; the returned error
// is reserved for failures that stop the batch (store errors, cancellation).
// A StaleEpoch result means the caller has to resynchronize that group.
func (s *Service) Process(
	ctx context.Context,
	passphrase string,
	msgs []*domain.Message,
) ([]domain.ProcessResult, error) {
	results := make([]domain.ProcessResult, len(msgs))

	// Bucket by group, keeping arrival order inside each bucket.
	var order []string
	buckets := make(map[string][]int)
	for i, m := range msgs {
		results[i] = domain.ProcessResult{WireFormat: m.WireFormat, GroupID: m.GroupID()}
		if m.WireFormat != domain.WireFormatProposal && m.WireFormat != domain.WireFormatCommit {
			results[i].Err = fmt.Errorf("%w: %s", ErrUnsupportedMessage, m.WireFormat)
			continue
		}
		key := string(m.GroupID())
		if _, ok := buckets[key]; !ok {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], i)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for _, key := range order {
		idx := buckets[key]
		g.Go(func() error {
			for _, i := range idx {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := s.processOne(ctx, passphrase, msgs[i], &results[i]); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// processOne handles one message. Protocol errors are recorded in res; any
// other error is returned and aborts the batch.
func (s *Service) processOne(ctx context.Context, passphrase string, m *domain.Message, res *domain.ProcessResult) error {
	var err error
	switch m.WireFormat {
	case domain.WireFormatProposal:
		res.Epoch = m.Proposal.Epoch
		err = s.groups.ReceiveProposal(ctx, passphrase, m.Proposal)
	case domain.WireFormatCommit:
		var sum domain.GroupSummary
		sum, err = s.groups.ApplyCommit(ctx, passphrase, m.Commit)
		if err == nil {
			res.Epoch = sum.Epoch
		} else {
			res.Epoch = m.Commit.Epoch
		}
	}
	if err == nil {
		return nil
	}
	res.Err = err

	log := s.log.With("group", res.GroupID.Hex(), "wire_format", m.WireFormat, "epoch", res.Epoch)
	switch {
	case errors.Is(err, domain.ErrAuthFailure), errors.Is(err, domain.ErrValidationFailed):
		log.Warn("dropping message", "err", err)
	case errors.Is(err, domain.ErrStaleEpoch):
		log.Info("stale message, group needs resync", "err", err)
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrTerminated):
		log.Info("message for unknown or finished group", "err", err)
	default:
		return err
	}
	return nil
}

// Compile-time assertion that Service implements domain.MessageService.
var _ domain.MessageService = (*Service)(nil)
