package di_test

import (
	"testing"

	"go.uber.org/dig"

	"github.com/junioryono/di"
)

type (
	BenchDep1 struct{ Value int }
	BenchDep2 struct{ Value int }
	BenchDep3 struct{ Value int }

	BenchService struct {
		Dep1 *BenchDep1
		Dep2 *BenchDep2
		Dep3 *BenchDep3
	}
)

func NewBenchDep1() *BenchDep1 { return &BenchDep1{Value: 1} }
func NewBenchDep2() *BenchDep2 { return &BenchDep2{Value: 2} }
func NewBenchDep3() *BenchDep3 { return &BenchDep3{Value: 3} }

func NewBenchService(d1 *BenchDep1, d2 *BenchDep2, d3 *BenchDep3) *BenchService {
	return &BenchService{Dep1: d1, Dep2: d2, Dep3: d3}
}

func benchInjector(b *testing.B, scope di.ScopeKind) *di.Injector {
	b.Helper()

	// a Singleton service cannot hold a per-request dependency
	depScope := di.SharedPerRequest
	if scope == di.Singleton {
		depScope = di.Singleton
	}

	c := di.NewCollection()
	for _, err := range []error{
		di.Bind[*BenchDep1](c, di.Factory(NewBenchDep1), di.InScope(di.Singleton)),
		di.Bind[*BenchDep2](c, di.Factory(NewBenchDep2), di.InScope(depScope)),
		di.Bind[*BenchDep3](c, di.Factory(NewBenchDep3)),
		di.Bind[*BenchService](c, di.Factory(NewBenchService), di.InScope(scope)),
	} {
		if err != nil {
			b.Fatal(err)
		}
	}

	inj, err := c.Build()
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = inj.Close() })
	return inj
}

func BenchmarkBuild_Singleton(b *testing.B) {
	inj := benchInjector(b, di.Singleton)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := di.Build[*BenchService](inj); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkBuild_Unique(b *testing.B) {
	inj := benchInjector(b, di.Unique)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := di.Build[*BenchService](inj); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkBuild_UniqueParallel(b *testing.B) {
	inj := benchInjector(b, di.Unique)

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := di.Build[*BenchService](inj); err != nil {
				b.Fatal(err)
			}
		}
	})
}

// BenchmarkDig_Invoke measures dig for the same graph. dig caches every
// result, so this corresponds to BenchmarkBuild_Singleton.
func BenchmarkDig_Invoke(b *testing.B) {
	c := dig.New()
	for _, ctor := range []any{NewBenchDep1, NewBenchDep2, NewBenchDep3, NewBenchService} {
		if err := c.Provide(ctor); err != nil {
			b.Fatal(err)
		}
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := c.Invoke(func(*BenchService) {}); err != nil {
			b.Fatal(err)
		}
	}
}
