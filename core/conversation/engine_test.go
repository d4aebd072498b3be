package conversation

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/m3rciful/stickerbot/core/kvstore"
	"github.com/m3rciful/stickerbot/core/session"
	"github.com/m3rciful/stickerbot/core/sticker"
)

const (
	testOwner  = int64(1000)
	testBotID  = int64(42)
	testChatID = int64(1000)
)

type fakeNotifier struct {
	texts    []string
	stickers []string
}

func (f *fakeNotifier) Text(_ context.Context, _ int64, text string) {
	f.texts = append(f.texts, text)
}

func (f *fakeNotifier) Sticker(_ context.Context, _ int64, fileID string) {
	f.stickers = append(f.stickers, fileID)
}

func (f *fakeNotifier) lastText(t *testing.T) string {
	t.Helper()
	if len(f.texts) == 0 {
		t.Fatal("no text was sent")
	}
	return f.texts[len(f.texts)-1]
}

type fakePacks struct {
	packs map[string]sticker.Pack
	err   error
}

func (f *fakePacks) Fetch(_ context.Context, name string) (sticker.Pack, error) {
	if f.err != nil {
		return sticker.Pack{}, f.err
	}
	pack, ok := f.packs[name]
	if !ok {
		return sticker.Pack{}, fmt.Errorf("no such pack %s", name)
	}
	return pack, nil
}

type fixture struct {
	engine   *Engine
	sessions *session.Store
	stickers *sticker.Repository
	notify   *fakeNotifier
	packs    *fakePacks
}

func newFixture() *fixture {
	kv := kvstore.NewMemory()
	sessions := session.NewStore(kv, testOwner)
	stickers := sticker.NewRepository(kv, testBotID)
	notify := &fakeNotifier{}
	packs := &fakePacks{packs: map[string]sticker.Pack{}}
	return &fixture{
		engine:   New(sessions, stickers, packs, notify),
		sessions: sessions,
		stickers: stickers,
		notify:   notify,
		packs:    packs,
	}
}

func (f *fixture) state(t *testing.T) session.State {
	t.Helper()
	state, err := f.sessions.Load(context.Background())
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	return state
}

func (f *fixture) setState(t *testing.T, state session.State) {
	t.Helper()
	if err := f.sessions.Save(context.Background(), state); err != nil {
		t.Fatalf("save state: %v", err)
	}
}

func packSticker(id string) sticker.Sticker {
	return sticker.Sticker{ID: id, FileID: "file-" + id, PackName: "pack_by_bot"}
}

func threePack() sticker.Pack {
	return sticker.Pack{
		Name:     "pack_by_bot",
		Stickers: []sticker.Sticker{packSticker("a"), packSticker("b"), packSticker("c")},
	}
}

func TestOnStickerPresentsMenu(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	if err := f.engine.OnSticker(ctx, testChatID, packSticker("a")); err != nil {
		t.Fatalf("on sticker: %v", err)
	}
	got, ok := f.state(t).(session.SingleSticker)
	if !ok {
		t.Fatalf("expected SingleSticker, got %T", f.state(t))
	}
	if got.Sticker.ID != "a" {
		t.Fatalf("unexpected sticker in state: %+v", got)
	}
	text := f.notify.lastText(t)
	if !strings.Contains(text, "/learn_sticker") || !strings.Contains(text, "/forget_pack") {
		t.Fatalf("menu text missing commands: %s", text)
	}
	if strings.Contains(text, "<code>") {
		t.Fatalf("untaught sticker should not list terms: %s", text)
	}
}

func TestOnStickerShowsExistingTerms(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	taught := packSticker("a")
	taught.Tokens = []string{"black", "cat"}
	if err := f.stickers.Save(ctx, &taught); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := f.engine.OnSticker(ctx, testChatID, packSticker("a")); err != nil {
		t.Fatalf("on sticker: %v", err)
	}
	text := f.notify.lastText(t)
	if !strings.Contains(text, "<code>black cat</code>") {
		t.Fatalf("expected existing terms in menu: %s", text)
	}
}

func TestOnStickerReplacesMenuSticker(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.setState(t, session.SingleSticker{Sticker: packSticker("a")})

	if err := f.engine.OnSticker(ctx, testChatID, packSticker("b")); err != nil {
		t.Fatalf("on sticker: %v", err)
	}
	got := f.state(t).(session.SingleSticker)
	if got.Sticker.ID != "b" {
		t.Fatalf("menu should follow the newest sticker, got %+v", got)
	}
}

func TestOnStickerDuringPackWalkIsRefused(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	walking := session.LearnStickerPack{Sticker: packSticker("a"), Pack: threePack(), Index: 0}
	f.setState(t, walking)

	if err := f.engine.OnSticker(ctx, testChatID, packSticker("b")); err != nil {
		t.Fatalf("on sticker: %v", err)
	}
	if f.notify.lastText(t) != textConfusedCancelOut {
		t.Fatalf("expected refusal, got %s", f.notify.lastText(t))
	}
	if !reflect.DeepEqual(f.state(t), walking) {
		t.Fatalf("state must be unchanged, got %+v", f.state(t))
	}
}

func TestLearnStickerFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.setState(t, session.SingleSticker{Sticker: packSticker("a")})

	if err := f.engine.LearnSticker(ctx, testChatID); err != nil {
		t.Fatalf("learn sticker: %v", err)
	}
	if _, ok := f.state(t).(session.LearnSingleSticker); !ok {
		t.Fatalf("expected LearnSingleSticker, got %T", f.state(t))
	}
	if f.notify.lastText(t) != textLearnPrompt {
		t.Fatalf("unexpected prompt: %s", f.notify.lastText(t))
	}

	if err := f.engine.OnText(ctx, testChatID, "Black CAT!"); err != nil {
		t.Fatalf("on text: %v", err)
	}
	if _, ok := f.state(t).(session.None); !ok {
		t.Fatalf("expected None after teaching, got %T", f.state(t))
	}
	if f.notify.lastText(t) != textLearnSaved {
		t.Fatalf("expected success reply, got %s", f.notify.lastText(t))
	}
	record, err := f.stickers.Find(ctx, "a")
	if err != nil || record == nil {
		t.Fatalf("record not saved: %v", err)
	}
	if !reflect.DeepEqual(record.Tokens, []string{"black", "cat"}) {
		t.Fatalf("tokens not normalized: %v", record.Tokens)
	}
}

func TestLearnStickerOutsideMenuConfused(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	if err := f.engine.LearnSticker(ctx, testChatID); err != nil {
		t.Fatalf("learn sticker: %v", err)
	}
	if f.notify.lastText(t) != textConfused {
		t.Fatalf("expected confusion, got %s", f.notify.lastText(t))
	}
}

func TestOnTextOutsideTeachingConfused(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	if err := f.engine.OnText(ctx, testChatID, "hello"); err != nil {
		t.Fatalf("on text: %v", err)
	}
	if f.notify.lastText(t) != textConfused {
		t.Fatalf("expected confusion, got %s", f.notify.lastText(t))
	}
}

func TestLearnPackWalksUntaughtOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	pack := threePack()
	f.packs.packs[pack.Name] = pack

	// Middle sticker is already taught and must be skipped.
	middle := pack.Stickers[1]
	middle.Tokens = []string{"known"}
	if err := f.stickers.Save(ctx, &middle); err != nil {
		t.Fatalf("save: %v", err)
	}

	f.setState(t, session.SingleSticker{Sticker: pack.Stickers[0]})
	if err := f.engine.LearnPack(ctx, testChatID); err != nil {
		t.Fatalf("learn pack: %v", err)
	}
	state := f.state(t).(session.LearnStickerPack)
	if state.Index != 0 || state.Sticker.ID != "a" {
		t.Fatalf("expected first untaught sticker, got %+v", state)
	}
	if len(f.notify.stickers) != 1 || f.notify.stickers[0] != "file-a" {
		t.Fatalf("sticker not presented: %v", f.notify.stickers)
	}

	if err := f.engine.OnText(ctx, testChatID, "first"); err != nil {
		t.Fatalf("teach first: %v", err)
	}
	state = f.state(t).(session.LearnStickerPack)
	if state.Index != 2 || state.Sticker.ID != "c" {
		t.Fatalf("taught sticker must be skipped, got %+v", state)
	}

	if err := f.engine.OnText(ctx, testChatID, "third"); err != nil {
		t.Fatalf("teach third: %v", err)
	}
	if _, ok := f.state(t).(session.None); !ok {
		t.Fatalf("expected None after finishing, got %T", f.state(t))
	}
	if f.notify.lastText(t) != textPackEveryLearned {
		t.Fatalf("unexpected done text: %s", f.notify.lastText(t))
	}

	first, _ := f.stickers.Find(ctx, "a")
	third, _ := f.stickers.Find(ctx, "c")
	if first == nil || third == nil {
		t.Fatal("taught records missing")
	}
	if !reflect.DeepEqual(first.Tokens, []string{"first"}) || !reflect.DeepEqual(third.Tokens, []string{"third"}) {
		t.Fatalf("tokens mismatch: %v %v", first.Tokens, third.Tokens)
	}
}

func TestLearnPackAllTaught(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	pack := threePack()
	f.packs.packs[pack.Name] = pack
	for _, s := range pack.Stickers {
		taught := s
		taught.Tokens = []string{"known"}
		if err := f.stickers.Save(ctx, &taught); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	f.setState(t, session.SingleSticker{Sticker: pack.Stickers[0]})

	if err := f.engine.LearnPack(ctx, testChatID); err != nil {
		t.Fatalf("learn pack: %v", err)
	}
	if _, ok := f.state(t).(session.None); !ok {
		t.Fatalf("expected None, got %T", f.state(t))
	}
	if f.notify.lastText(t) != textPackAlready {
		t.Fatalf("unexpected text: %s", f.notify.lastText(t))
	}
}

func TestLearnPackWithoutPackName(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	solo := sticker.Sticker{ID: "solo", FileID: "file-solo"}
	before := session.SingleSticker{Sticker: solo}
	f.setState(t, before)

	if err := f.engine.LearnPack(ctx, testChatID); err != nil {
		t.Fatalf("learn pack: %v", err)
	}
	if f.notify.lastText(t) != textNoPack {
		t.Fatalf("unexpected text: %s", f.notify.lastText(t))
	}
	if !reflect.DeepEqual(f.state(t), before) {
		t.Fatalf("state must be unchanged, got %+v", f.state(t))
	}
}

func TestLearnPackFetchFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.packs.err = errors.New("telegram down")
	before := session.SingleSticker{Sticker: packSticker("a")}
	f.setState(t, before)

	if err := f.engine.LearnPack(ctx, testChatID); err != nil {
		t.Fatalf("learn pack: %v", err)
	}
	if f.notify.lastText(t) != textPackLoadFailed {
		t.Fatalf("unexpected text: %s", f.notify.lastText(t))
	}
	if !reflect.DeepEqual(f.state(t), before) {
		t.Fatalf("state must be unchanged, got %+v", f.state(t))
	}
}

func TestLearnPackOutsideMenuConfused(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	if err := f.engine.LearnPack(ctx, testChatID); err != nil {
		t.Fatalf("learn pack: %v", err)
	}
	if f.notify.lastText(t) != textConfusedCancelHint {
		t.Fatalf("unexpected text: %s", f.notify.lastText(t))
	}
}

func TestRelearnPackPresentsEverySticker(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	pack := threePack()
	f.packs.packs[pack.Name] = pack

	// First sticker is taught; relearn must still present it, with terms.
	taught := pack.Stickers[0]
	taught.Tokens = []string{"old", "terms"}
	if err := f.stickers.Save(ctx, &taught); err != nil {
		t.Fatalf("save: %v", err)
	}
	f.setState(t, session.SingleSticker{Sticker: pack.Stickers[1]})

	if err := f.engine.RelearnPack(ctx, testChatID); err != nil {
		t.Fatalf("relearn pack: %v", err)
	}
	state := f.state(t).(session.RelearnStickerPack)
	if state.Index != 0 || state.Sticker.ID != "a" {
		t.Fatalf("expected first pack sticker, got %+v", state)
	}
	if !strings.Contains(f.notify.lastText(t), "<code>old terms</code>") {
		t.Fatalf("expected stored terms in prompt: %s", f.notify.lastText(t))
	}

	if err := f.engine.Skip(ctx, testChatID); err != nil {
		t.Fatalf("skip: %v", err)
	}
	state = f.state(t).(session.RelearnStickerPack)
	if state.Index != 1 || state.Sticker.ID != "b" {
		t.Fatalf("skip must advance by one, got %+v", state)
	}

	if err := f.engine.OnText(ctx, testChatID, "second"); err != nil {
		t.Fatalf("teach: %v", err)
	}
	state = f.state(t).(session.RelearnStickerPack)
	if state.Index != 2 || state.Sticker.ID != "c" {
		t.Fatalf("teaching must advance by one, got %+v", state)
	}

	if err := f.engine.Skip(ctx, testChatID); err != nil {
		t.Fatalf("final skip: %v", err)
	}
	if _, ok := f.state(t).(session.None); !ok {
		t.Fatalf("expected None after walking the pack, got %T", f.state(t))
	}
	if f.notify.lastText(t) != textPackAllDone {
		t.Fatalf("unexpected done text: %s", f.notify.lastText(t))
	}
}

func TestRelearnPackEmptyPack(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.packs.packs["pack_by_bot"] = sticker.Pack{Name: "pack_by_bot"}
	f.setState(t, session.SingleSticker{Sticker: packSticker("a")})

	if err := f.engine.RelearnPack(ctx, testChatID); err != nil {
		t.Fatalf("relearn pack: %v", err)
	}
	if _, ok := f.state(t).(session.None); !ok {
		t.Fatalf("expected None, got %T", f.state(t))
	}
	if f.notify.lastText(t) != textPackEmpty {
		t.Fatalf("unexpected text: %s", f.notify.lastText(t))
	}
}

func TestForgetStickerFromMenu(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	taught := packSticker("a")
	taught.Tokens = []string{"cat"}
	if err := f.stickers.Save(ctx, &taught); err != nil {
		t.Fatalf("save: %v", err)
	}
	f.setState(t, session.SingleSticker{Sticker: taught})

	if err := f.engine.ForgetSticker(ctx, testChatID); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if _, ok := f.state(t).(session.None); !ok {
		t.Fatalf("expected None, got %T", f.state(t))
	}
	if f.notify.lastText(t) != textForgetOne {
		t.Fatalf("unexpected text: %s", f.notify.lastText(t))
	}
	record, err := f.stickers.Find(ctx, "a")
	if err != nil || record != nil {
		t.Fatalf("record should be gone, got %+v err %v", record, err)
	}
}

func TestForgetStickerDuringWalkAdvances(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	pack := threePack()
	current := pack.Stickers[0]
	current.Tokens = []string{"cat"}
	if err := f.stickers.Save(ctx, &current); err != nil {
		t.Fatalf("save: %v", err)
	}
	f.setState(t, session.LearnStickerPack{Sticker: current, Pack: pack, Index: 0})

	if err := f.engine.ForgetSticker(ctx, testChatID); err != nil {
		t.Fatalf("forget: %v", err)
	}
	record, err := f.stickers.Find(ctx, "a")
	if err != nil || record != nil {
		t.Fatalf("record should be gone, got %+v err %v", record, err)
	}
	state := f.state(t).(session.LearnStickerPack)
	if state.Index != 1 || state.Sticker.ID != "b" {
		t.Fatalf("expected advance to next sticker, got %+v", state)
	}
}

func TestSkipOutsideWalkConfused(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	if err := f.engine.Skip(ctx, testChatID); err != nil {
		t.Fatalf("skip: %v", err)
	}
	if f.notify.lastText(t) != textConfused {
		t.Fatalf("unexpected text: %s", f.notify.lastText(t))
	}
}

func TestForgetPackDeletesTaughtOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	pack := threePack()
	f.packs.packs[pack.Name] = pack
	for _, id := range []string{"a", "c"} {
		taught := packSticker(id)
		taught.Tokens = []string{"cat"}
		if err := f.stickers.Save(ctx, &taught); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	f.setState(t, session.SingleSticker{Sticker: pack.Stickers[0]})

	if err := f.engine.ForgetPack(ctx, testChatID); err != nil {
		t.Fatalf("forget pack: %v", err)
	}
	if _, ok := f.state(t).(session.None); !ok {
		t.Fatalf("expected None, got %T", f.state(t))
	}
	if !strings.Contains(f.notify.lastText(t), "2 stickers were forgotten") {
		t.Fatalf("unexpected tally: %s", f.notify.lastText(t))
	}
	for _, id := range []string{"a", "b", "c"} {
		record, err := f.stickers.Find(ctx, id)
		if err != nil || record != nil {
			t.Fatalf("record %s should be gone, got %+v err %v", id, record, err)
		}
	}

	// A second pass finds nothing left to delete.
	f.setState(t, session.SingleSticker{Sticker: pack.Stickers[0]})
	if err := f.engine.ForgetPack(ctx, testChatID); err != nil {
		t.Fatalf("second forget pack: %v", err)
	}
	if !strings.Contains(f.notify.lastText(t), "0 stickers were forgotten") {
		t.Fatalf("unexpected tally: %s", f.notify.lastText(t))
	}
}

func TestForgetPackOutsideMenuConfused(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	if err := f.engine.ForgetPack(ctx, testChatID); err != nil {
		t.Fatalf("forget pack: %v", err)
	}
	if f.notify.lastText(t) != textConfusedCancelOut {
		t.Fatalf("unexpected text: %s", f.notify.lastText(t))
	}
}

func TestCancelFromAnyState(t *testing.T) {
	ctx := context.Background()
	states := []session.State{
		session.None{},
		session.SingleSticker{Sticker: packSticker("a")},
		session.LearnSingleSticker{Sticker: packSticker("a")},
		session.LearnStickerPack{Sticker: packSticker("a"), Pack: threePack(), Index: 0},
		session.RelearnStickerPack{Sticker: packSticker("a"), Pack: threePack(), Index: 1},
	}
	for _, state := range states {
		f := newFixture()
		f.setState(t, state)
		if err := f.engine.Cancel(ctx, testChatID); err != nil {
			t.Fatalf("cancel from %T: %v", state, err)
		}
		if _, ok := f.state(t).(session.None); !ok {
			t.Fatalf("cancel from %T should reset, got %T", state, f.state(t))
		}
		if f.notify.lastText(t) != textCancel {
			t.Fatalf("unexpected text: %s", f.notify.lastText(t))
		}
	}
}
