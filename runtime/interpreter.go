package runtime

import (
	"context"
	"errors"
	"log/slog"
	"standupbot/contract"
	"standupbot/domain/event"
	"standupbot/domain/standup"
	apperrors "standupbot/errors"
	"time"

	"github.com/samber/lo"
)

// Interpreter turns commands into store transitions and channel messages.
// It is called by the single worker of a channel, never concurrently for the same store.
type Interpreter struct {
	log          *slog.Logger
	parser       standup.Parser
	directory    contract.Directory
	notifier     contract.Notifier
	admins       contract.AdminPolicy
	questions    standup.Questions
	domainEvents chan<- event.DomainEvent
	recapURL     string
	now          func() time.Time
}

func NewInterpreter(log *slog.Logger, parser standup.Parser,
	directory contract.Directory, notifier contract.Notifier, admins contract.AdminPolicy,
	questions standup.Questions, domainEvents chan<- event.DomainEvent, recapURL string) *Interpreter {
	return &Interpreter{
		log:          log,
		parser:       parser,
		directory:    directory,
		notifier:     notifier,
		admins:       admins,
		questions:    questions,
		domainEvents: domainEvents,
		recapURL:     recapURL,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Handle resolves the sender, parses the text and dispatches the command.
func (i *Interpreter) Handle(ctx context.Context, store *standup.Store, msg event.Message) contract.Outcome {
	actor, err := i.directory.ResolveMember(ctx, msg.Sender)
	if err != nil {
		i.log.Warn("Unable to resolve message sender", "channel", msg.Channel, "member", msg.Sender, "error", err)
		if errors.Is(err, apperrors.ErrMemberNotFound) {
			i.notifier.Send(msg.Channel, unknownMember(msg.Sender))
		}
		return contract.Continue
	}
	return i.Dispatch(ctx, store, i.parser.Parse(msg.Channel, actor, msg.Text))
}

// Dispatch applies a command. Mentions run first, quit and help short-circuit,
// and the completion check runs before and after every mutation so the final
// announcement is sent exactly once.
func (i *Interpreter) Dispatch(ctx context.Context, store *standup.Store, cmd standup.Command) contract.Outcome {
	for _, mention := range cmd.Mentions {
		i.excuse(store, cmd, mention)
	}

	switch cmd.Kind {
	case standup.KindQuit:
		return i.quit(store, cmd)
	case standup.KindHelp:
		i.notifier.Send(cmd.Channel, helpText)
		return contract.Continue
	}

	if i.finalize(store) {
		return contract.Finished
	}

	actor := cmd.Actor.ID
	phase := store.PhaseOf(actor)

	if cmd.Kind == standup.KindSkipToEnd && phase == standup.PhaseCurrent {
		err := store.SkipCurrentToEnd(actor)
		if err == nil {
			i.notifier.Send(cmd.Channel, movedToEnd(actor))
			i.promptCurrent(store)
			return i.outcome(store)
		}
		i.log.Debug("Skip refused", "channel", cmd.Channel, "member", actor, "error", err)
	}

	if phase == standup.PhaseCompleted &&
		(cmd.Kind == standup.KindAcknowledge || cmd.Kind == standup.KindSkipToEnd) {
		i.notifier.Send(cmd.Channel, alreadySubmitted(actor))
		return contract.Continue
	}

	if phase == standup.PhaseCurrent {
		return i.answer(store, cmd)
	}

	if cmd.Kind == standup.KindStart {
		return i.start(ctx, store, cmd)
	}
	return contract.Continue
}

// Greet handles a (re)connection for the channel.
func (i *Interpreter) Greet(store *standup.Store) contract.Outcome {
	switch {
	case store.Status() == standup.StatusComplete:
		i.notifier.Send(store.Channel(), msgAlreadyCompleted)
		return contract.Finished
	case store.IsComplete():
		if store.Finalize() {
			i.emit(event.StandupFinished{SessionID: store.SessionID(), Channel: store.Channel(), Status: standup.StatusComplete, At: i.now()})
		}
		i.notifier.Send(store.Channel(), msgAlreadyCompleted)
		return contract.Finished
	case store.Status() == standup.StatusActive:
		i.notifier.Send(store.Channel(), msgResumed)
		i.promptCurrent(store)
		return contract.Continue
	default:
		i.notifier.Send(store.Channel(), msgWelcome)
		return contract.Continue
	}
}

func (i *Interpreter) start(ctx context.Context, store *standup.Store, cmd standup.Command) contract.Outcome {
	if store.HasSession() {
		i.log.Debug("Start ignored, a session exists", "channel", cmd.Channel, "status", store.Status())
		return contract.Continue
	}
	members, err := i.directory.ListMembers(ctx, cmd.Channel)
	if err != nil {
		i.log.Warn("Unable to list channel members", "channel", cmd.Channel, "error", err)
		return contract.Continue
	}
	if err := store.Start(cmd.Actor.ID, members, i.now()); err != nil {
		i.log.Debug("Start refused", "channel", cmd.Channel, "error", err)
		return contract.Continue
	}
	i.log.Info("Standup started", "channel", cmd.Channel, "member", cmd.Actor.ID, "members", len(members))
	i.emit(event.StandupStarted{
		SessionID:   store.SessionID(),
		Channel:     cmd.Channel,
		InitiatedBy: cmd.Actor.ID,
		Members:     lo.Map(members, func(m standup.Member, _ int) standup.MemberID { return m.ID }),
		At:          i.now(),
	})
	i.notifier.Send(cmd.Channel, msgStarted)
	i.promptCurrent(store)
	return i.outcome(store)
}

func (i *Interpreter) answer(store *standup.Store, cmd standup.Command) contract.Outcome {
	current, ok := store.Current()
	if !ok || current.ID != cmd.Actor.ID {
		return contract.Continue
	}

	if current.Readiness == standup.NotReady {
		if cmd.Kind == standup.KindAcknowledge && store.MarkReady(current.ID) {
			i.askCurrentQuestion(store, current.ID)
		}
		return contract.Continue
	}

	if cmd.Kind == standup.KindVacation || cmd.Kind == standup.KindAdminSkip {
		return i.outcome(store)
	}

	index := store.QuestionIndex()
	question, _ := i.questions.At(index)
	sessionID := store.SessionID()
	if err := store.AdvanceQuestion(current.ID); err != nil {
		i.log.Debug("Answer refused", "channel", cmd.Channel, "member", current.ID, "error", err)
		return contract.Continue
	}
	i.emit(event.AnswerRecorded{
		SessionID:     sessionID,
		Channel:       cmd.Channel,
		Member:        current,
		QuestionIndex: index,
		Question:      question,
		Answer:        cmd.Raw,
		At:            i.now(),
	})

	if next, ok := store.Current(); ok && next.ID == current.ID {
		i.askCurrentQuestion(store, current.ID)
		return contract.Continue
	}
	i.notifier.Send(cmd.Channel, memberDone(current.ID))
	i.promptCurrent(store)
	return i.outcome(store)
}

func (i *Interpreter) excuse(store *standup.Store, cmd standup.Command, mention standup.Mention) {
	if !i.admins.IsAdmin(cmd.Actor) && cmd.Actor.ID != store.InitiatedBy() {
		i.notifier.Send(cmd.Channel, notAllowed(cmd.Actor.ID))
		return
	}

	previous, hadCurrent := store.Current()
	reason := standup.ExcusedSkipped
	apply := store.AdminSkip
	if mention.Kind == standup.KindVacation {
		reason = standup.ExcusedVacation
		apply = store.Vacation
	}
	if _, already := store.Excused(mention.Target); already {
		return
	}
	if err := apply(mention.Target); err != nil {
		i.log.Debug("Excuse refused", "channel", cmd.Channel, "member", mention.Target, "error", err)
		return
	}
	if _, done := store.Excused(mention.Target); !done {
		return
	}

	i.emit(event.MemberExcused{
		SessionID: store.SessionID(),
		Channel:   cmd.Channel,
		Member:    mention.Target,
		By:        cmd.Actor.ID,
		Reason:    reason,
		At:        i.now(),
	})
	i.notifier.Send(cmd.Channel, excused(mention.Target, reason))
	if hadCurrent && previous.ID == mention.Target {
		i.promptCurrent(store)
	}
}

func (i *Interpreter) quit(store *standup.Store, cmd standup.Command) contract.Outcome {
	if err := store.Quit(); err != nil {
		i.log.Debug("Quit without active session", "channel", cmd.Channel, "error", err)
	} else {
		i.emit(event.StandupFinished{SessionID: store.SessionID(), Channel: cmd.Channel, Status: standup.StatusAborted, At: i.now()})
	}
	i.log.Info("Standup quit", "channel", cmd.Channel, "member", cmd.Actor.ID)
	i.notifier.Send(cmd.Channel, msgQuit)
	return contract.Finished
}

// finalize sends the completion announcement when this call closed the session.
func (i *Interpreter) finalize(store *standup.Store) bool {
	if !store.Finalize() {
		return false
	}
	i.log.Info("Standup completed", "channel", store.Channel())
	i.emit(event.StandupFinished{SessionID: store.SessionID(), Channel: store.Channel(), Status: standup.StatusComplete, At: i.now()})
	i.notifier.Send(store.Channel(), completion(i.recapURL))
	return true
}

func (i *Interpreter) outcome(store *standup.Store) contract.Outcome {
	if i.finalize(store) {
		return contract.Finished
	}
	return contract.Continue
}

// promptCurrent greets the current member, or asks their question when they are already answering.
func (i *Interpreter) promptCurrent(store *standup.Store) {
	current, ok := store.Current()
	if !ok {
		return
	}
	if current.Readiness == standup.Ready {
		i.askCurrentQuestion(store, current.ID)
		return
	}
	i.notifier.Send(store.Channel(), greeting(current.ID))
}

func (i *Interpreter) askCurrentQuestion(store *standup.Store, id standup.MemberID) {
	index := store.QuestionIndex()
	question, ok := i.questions.At(index)
	if !ok {
		i.log.Warn("No question at index", "channel", store.Channel(), "index", index)
		return
	}
	i.notifier.Send(store.Channel(), askQuestion(id, index, question))
}

func (i *Interpreter) emit(evt event.DomainEvent) {
	if i.domainEvents == nil {
		return
	}
	select {
	case i.domainEvents <- evt:
	default:
		i.log.Warn("Domain event channel full, event lost", "channel", evt.ChannelID())
	}
}
