// Package reconcile 对比本轮新拉取的行与库中已有行，得出 新增/更新/删除 集合并尽力写入。
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"EncounterSync/internal/interfaces"

	"gorm.io/gorm"
)

// Op 写操作类型
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Plan 一个采集单元的写入计划
type Plan[T any] struct {
	Insert    []T
	Update    []T
	Delete    []string // 仅在 withDelete 时计算：库中有、本轮未拉到的行
	Unchanged int
}

// Empty 没有任何需要写入的行
func (p Plan[T]) Empty() bool {
	return len(p.Insert) == 0 && len(p.Update) == 0 && len(p.Delete) == 0
}

// Diff 按 key 对比；equal 为字段级比较，存在但字段一致的行跳过写入
// 新拉取数据中重复的 key 只保留第一条
func Diff[T any](stored, fresh []T, key func(T) string, equal func(a, b T) bool, withDelete bool) Plan[T] {
	var plan Plan[T]
	byKey := make(map[string]T, len(stored))
	for _, s := range stored {
		byKey[key(s)] = s
	}
	seen := make(map[string]bool, len(fresh))
	for _, f := range fresh {
		k := key(f)
		if seen[k] {
			continue
		}
		seen[k] = true
		old, ok := byKey[k]
		switch {
		case !ok:
			plan.Insert = append(plan.Insert, f)
		case equal(old, f):
			plan.Unchanged++
		default:
			plan.Update = append(plan.Update, f)
		}
	}
	if withDelete {
		for k := range byKey {
			if !seen[k] {
				plan.Delete = append(plan.Delete, k)
			}
		}
		sort.Strings(plan.Delete)
	}
	return plan
}

// Writer 按实体类型的单行写入
type Writer[T any] interface {
	Insert(ctx context.Context, row T) error
	Update(ctx context.Context, row T) error
	Delete(ctx context.Context, key string) error
}

// RowError 单行失败
type RowError struct {
	Key string
	Op  Op
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// Result 批次写入结果
type Result struct {
	Inserted, Updated, Deleted int
	Failures                   []RowError
}

// Err 把全部单行失败合并为一个 error，没有失败时为 nil
func (r Result) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, f)
	}
	return errors.Join(errs...)
}

// Apply 尽力写入：单行失败记入 Failures，不影响其它行；ctx 取消时剩余行不再写入
func Apply[T any](ctx context.Context, plan Plan[T], key func(T) string, w Writer[T]) Result {
	var res Result
	fail := func(k string, op Op, err error) {
		res.Failures = append(res.Failures, RowError{Key: k, Op: op, Err: classify(err)})
	}
	for _, row := range plan.Insert {
		if ctx.Err() != nil {
			fail(key(row), OpInsert, ctx.Err())
			continue
		}
		if err := w.Insert(ctx, row); err != nil {
			fail(key(row), OpInsert, err)
			continue
		}
		res.Inserted++
	}
	for _, row := range plan.Update {
		if ctx.Err() != nil {
			fail(key(row), OpUpdate, ctx.Err())
			continue
		}
		if err := w.Update(ctx, row); err != nil {
			fail(key(row), OpUpdate, err)
			continue
		}
		res.Updated++
	}
	for _, k := range plan.Delete {
		if ctx.Err() != nil {
			fail(k, OpDelete, ctx.Err())
			continue
		}
		if err := w.Delete(ctx, k); err != nil {
			fail(k, OpDelete, err)
			continue
		}
		res.Deleted++
	}
	return res
}

// classify 唯一键冲突统一归类为 ErrConstraintViolation
func classify(err error) error {
	if err == nil || errors.Is(err, interfaces.ErrConstraintViolation) {
		return err
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", interfaces.ErrConstraintViolation, err)
	}
	msg := err.Error()
	if strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "23505") {
		return fmt.Errorf("%w: %v", interfaces.ErrConstraintViolation, err)
	}
	return err
}
