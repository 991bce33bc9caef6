package pisa

import (
	"fmt"

	"github.com/GoAethereal/cancel"
)

// This file extends tuple.go's TupleConverter2/TupleConverter3 pattern to arities 4 through 7
// (§4.5, §8's "tuple round-trip ... up to arity 7"). Each converter follows the identical shape:
// store every element independently, combine the resulting ids with one Apply, and invert the
// same way on Retrieve. Splitting these into their own file keeps tuple.go's two lowest, most
// frequently read arities uncluttered.

func idsOf(ctx cancel.Context, hs ...interface{ ID(cancel.Context) (ObjectId, error) }) ([]ObjectId, error) {
	ids := make([]ObjectId, len(hs))
	for i, h := range hs {
		id, err := h.ID(ctx)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

func labels(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = string(rune('a' + i))
	}
	return out
}

// TupleConverter4 converts Tuple4[A, B, C, D].
func TupleConverter4[A, B, C, D any](ca *Converter[A], cb *Converter[B], cc *Converter[C], cd *Converter[D]) *Converter[Tuple4[A, B, C, D]] {
	conv := &Converter[Tuple4[A, B, C, D]]{MLType: fmt.Sprintf("(%s * %s * %s * %s)", ca.MLType, cb.MLType, cc.MLType, cd.MLType)}
	conv.store = func(ctx cancel.Context, t *Transport, v Tuple4[A, B, C, D]) (Handle[Tuple4[A, B, C, D]], error) {
		var zero Handle[Tuple4[A, B, C, D]]
		ha, err := ca.Store(ctx, t, v.First)
		if err != nil {
			return zero, err
		}
		defer ha.Release()
		hb, err := cb.Store(ctx, t, v.Second)
		if err != nil {
			return zero, err
		}
		defer hb.Release()
		hc, err := cc.Store(ctx, t, v.Third)
		if err != nil {
			return zero, err
		}
		defer hc.Release()
		hd, err := cd.Store(ctx, t, v.Fourth)
		if err != nil {
			return zero, err
		}
		defer hd.Release()
		ids, err := idsOf(ctx, ha, hb, hc, hd)
		if err != nil {
			return zero, err
		}
		s, err := storeComposite(ctx, t, pairConstructCode(labels(4)...), ids)
		if err != nil {
			return zero, err
		}
		return newHandle[Tuple4[A, B, C, D]](t, s), nil
	}
	conv.retrieve = func(ctx cancel.Context, h Handle[Tuple4[A, B, C, D]]) (Tuple4[A, B, C, D], error) {
		var zero Tuple4[A, B, C, D]
		id, err := h.ID(ctx)
		if err != nil {
			return zero, err
		}
		t := h.transport()
		ids, err := retrieveComposite(ctx, t, id, pairDecomposeCode(4), 4)
		if err != nil {
			return zero, err
		}
		a, err := ca.Retrieve(ctx, UnsafeHandleFromID[A](t, ids[0]))
		if err != nil {
			return zero, err
		}
		b, err := cb.Retrieve(ctx, UnsafeHandleFromID[B](t, ids[1]))
		if err != nil {
			return zero, err
		}
		c, err := cc.Retrieve(ctx, UnsafeHandleFromID[C](t, ids[2]))
		if err != nil {
			return zero, err
		}
		d, err := cd.Retrieve(ctx, UnsafeHandleFromID[D](t, ids[3]))
		if err != nil {
			return zero, err
		}
		return Tuple4[A, B, C, D]{First: a, Second: b, Third: c, Fourth: d}, nil
	}
	return conv
}

// TupleConverter5 converts Tuple5[A, B, C, D, E].
func TupleConverter5[A, B, C, D, E any](ca *Converter[A], cb *Converter[B], cc *Converter[C], cd *Converter[D], ce *Converter[E]) *Converter[Tuple5[A, B, C, D, E]] {
	conv := &Converter[Tuple5[A, B, C, D, E]]{MLType: fmt.Sprintf("(%s * %s * %s * %s * %s)", ca.MLType, cb.MLType, cc.MLType, cd.MLType, ce.MLType)}
	conv.store = func(ctx cancel.Context, t *Transport, v Tuple5[A, B, C, D, E]) (Handle[Tuple5[A, B, C, D, E]], error) {
		var zero Handle[Tuple5[A, B, C, D, E]]
		ha, err := ca.Store(ctx, t, v.First)
		if err != nil {
			return zero, err
		}
		defer ha.Release()
		hb, err := cb.Store(ctx, t, v.Second)
		if err != nil {
			return zero, err
		}
		defer hb.Release()
		hc, err := cc.Store(ctx, t, v.Third)
		if err != nil {
			return zero, err
		}
		defer hc.Release()
		hd, err := cd.Store(ctx, t, v.Fourth)
		if err != nil {
			return zero, err
		}
		defer hd.Release()
		he, err := ce.Store(ctx, t, v.Fifth)
		if err != nil {
			return zero, err
		}
		defer he.Release()
		ids, err := idsOf(ctx, ha, hb, hc, hd, he)
		if err != nil {
			return zero, err
		}
		s, err := storeComposite(ctx, t, pairConstructCode(labels(5)...), ids)
		if err != nil {
			return zero, err
		}
		return newHandle[Tuple5[A, B, C, D, E]](t, s), nil
	}
	conv.retrieve = func(ctx cancel.Context, h Handle[Tuple5[A, B, C, D, E]]) (Tuple5[A, B, C, D, E], error) {
		var zero Tuple5[A, B, C, D, E]
		id, err := h.ID(ctx)
		if err != nil {
			return zero, err
		}
		t := h.transport()
		ids, err := retrieveComposite(ctx, t, id, pairDecomposeCode(5), 5)
		if err != nil {
			return zero, err
		}
		a, err := ca.Retrieve(ctx, UnsafeHandleFromID[A](t, ids[0]))
		if err != nil {
			return zero, err
		}
		b, err := cb.Retrieve(ctx, UnsafeHandleFromID[B](t, ids[1]))
		if err != nil {
			return zero, err
		}
		c, err := cc.Retrieve(ctx, UnsafeHandleFromID[C](t, ids[2]))
		if err != nil {
			return zero, err
		}
		d, err := cd.Retrieve(ctx, UnsafeHandleFromID[D](t, ids[3]))
		if err != nil {
			return zero, err
		}
		e, err := ce.Retrieve(ctx, UnsafeHandleFromID[E](t, ids[4]))
		if err != nil {
			return zero, err
		}
		return Tuple5[A, B, C, D, E]{First: a, Second: b, Third: c, Fourth: d, Fifth: e}, nil
	}
	return conv
}

// TupleConverter6 converts Tuple6[A, B, C, D, E, F].
func TupleConverter6[A, B, C, D, E, F any](ca *Converter[A], cb *Converter[B], cc *Converter[C], cd *Converter[D], ce *Converter[E], cf *Converter[F]) *Converter[Tuple6[A, B, C, D, E, F]] {
	conv := &Converter[Tuple6[A, B, C, D, E, F]]{MLType: fmt.Sprintf("(%s * %s * %s * %s * %s * %s)", ca.MLType, cb.MLType, cc.MLType, cd.MLType, ce.MLType, cf.MLType)}
	conv.store = func(ctx cancel.Context, t *Transport, v Tuple6[A, B, C, D, E, F]) (Handle[Tuple6[A, B, C, D, E, F]], error) {
		var zero Handle[Tuple6[A, B, C, D, E, F]]
		ha, err := ca.Store(ctx, t, v.First)
		if err != nil {
			return zero, err
		}
		defer ha.Release()
		hb, err := cb.Store(ctx, t, v.Second)
		if err != nil {
			return zero, err
		}
		defer hb.Release()
		hc, err := cc.Store(ctx, t, v.Third)
		if err != nil {
			return zero, err
		}
		defer hc.Release()
		hd, err := cd.Store(ctx, t, v.Fourth)
		if err != nil {
			return zero, err
		}
		defer hd.Release()
		he, err := ce.Store(ctx, t, v.Fifth)
		if err != nil {
			return zero, err
		}
		defer he.Release()
		hf, err := cf.Store(ctx, t, v.Sixth)
		if err != nil {
			return zero, err
		}
		defer hf.Release()
		ids, err := idsOf(ctx, ha, hb, hc, hd, he, hf)
		if err != nil {
			return zero, err
		}
		s, err := storeComposite(ctx, t, pairConstructCode(labels(6)...), ids)
		if err != nil {
			return zero, err
		}
		return newHandle[Tuple6[A, B, C, D, E, F]](t, s), nil
	}
	conv.retrieve = func(ctx cancel.Context, h Handle[Tuple6[A, B, C, D, E, F]]) (Tuple6[A, B, C, D, E, F], error) {
		var zero Tuple6[A, B, C, D, E, F]
		id, err := h.ID(ctx)
		if err != nil {
			return zero, err
		}
		t := h.transport()
		ids, err := retrieveComposite(ctx, t, id, pairDecomposeCode(6), 6)
		if err != nil {
			return zero, err
		}
		a, err := ca.Retrieve(ctx, UnsafeHandleFromID[A](t, ids[0]))
		if err != nil {
			return zero, err
		}
		b, err := cb.Retrieve(ctx, UnsafeHandleFromID[B](t, ids[1]))
		if err != nil {
			return zero, err
		}
		c, err := cc.Retrieve(ctx, UnsafeHandleFromID[C](t, ids[2]))
		if err != nil {
			return zero, err
		}
		d, err := cd.Retrieve(ctx, UnsafeHandleFromID[D](t, ids[3]))
		if err != nil {
			return zero, err
		}
		e, err := ce.Retrieve(ctx, UnsafeHandleFromID[E](t, ids[4]))
		if err != nil {
			return zero, err
		}
		f, err := cf.Retrieve(ctx, UnsafeHandleFromID[F](t, ids[5]))
		if err != nil {
			return zero, err
		}
		return Tuple6[A, B, C, D, E, F]{First: a, Second: b, Third: c, Fourth: d, Fifth: e, Sixth: f}, nil
	}
	return conv
}

// TupleConverter7 converts Tuple7[A, B, C, D, E, F, G], the largest arity §8 requires round-tripping.
func TupleConverter7[A, B, C, D, E, F, G any](ca *Converter[A], cb *Converter[B], cc *Converter[C], cd *Converter[D], ce *Converter[E], cf *Converter[F], cg *Converter[G]) *Converter[Tuple7[A, B, C, D, E, F, G]] {
	conv := &Converter[Tuple7[A, B, C, D, E, F, G]]{MLType: fmt.Sprintf("(%s * %s * %s * %s * %s * %s * %s)", ca.MLType, cb.MLType, cc.MLType, cd.MLType, ce.MLType, cf.MLType, cg.MLType)}
	conv.store = func(ctx cancel.Context, t *Transport, v Tuple7[A, B, C, D, E, F, G]) (Handle[Tuple7[A, B, C, D, E, F, G]], error) {
		var zero Handle[Tuple7[A, B, C, D, E, F, G]]
		ha, err := ca.Store(ctx, t, v.First)
		if err != nil {
			return zero, err
		}
		defer ha.Release()
		hb, err := cb.Store(ctx, t, v.Second)
		if err != nil {
			return zero, err
		}
		defer hb.Release()
		hc, err := cc.Store(ctx, t, v.Third)
		if err != nil {
			return zero, err
		}
		defer hc.Release()
		hd, err := cd.Store(ctx, t, v.Fourth)
		if err != nil {
			return zero, err
		}
		defer hd.Release()
		he, err := ce.Store(ctx, t, v.Fifth)
		if err != nil {
			return zero, err
		}
		defer he.Release()
		hf, err := cf.Store(ctx, t, v.Sixth)
		if err != nil {
			return zero, err
		}
		defer hf.Release()
		hg, err := cg.Store(ctx, t, v.Seventh)
		if err != nil {
			return zero, err
		}
		defer hg.Release()
		ids, err := idsOf(ctx, ha, hb, hc, hd, he, hf, hg)
		if err != nil {
			return zero, err
		}
		s, err := storeComposite(ctx, t, pairConstructCode(labels(7)...), ids)
		if err != nil {
			return zero, err
		}
		return newHandle[Tuple7[A, B, C, D, E, F, G]](t, s), nil
	}
	conv.retrieve = func(ctx cancel.Context, h Handle[Tuple7[A, B, C, D, E, F, G]]) (Tuple7[A, B, C, D, E, F, G], error) {
		var zero Tuple7[A, B, C, D, E, F, G]
		id, err := h.ID(ctx)
		if err != nil {
			return zero, err
		}
		t := h.transport()
		ids, err := retrieveComposite(ctx, t, id, pairDecomposeCode(7), 7)
		if err != nil {
			return zero, err
		}
		a, err := ca.Retrieve(ctx, UnsafeHandleFromID[A](t, ids[0]))
		if err != nil {
			return zero, err
		}
		b, err := cb.Retrieve(ctx, UnsafeHandleFromID[B](t, ids[1]))
		if err != nil {
			return zero, err
		}
		c, err := cc.Retrieve(ctx, UnsafeHandleFromID[C](t, ids[2]))
		if err != nil {
			return zero, err
		}
		d, err := cd.Retrieve(ctx, UnsafeHandleFromID[D](t, ids[3]))
		if err != nil {
			return zero, err
		}
		e, err := ce.Retrieve(ctx, UnsafeHandleFromID[E](t, ids[4]))
		if err != nil {
			return zero, err
		}
		f, err := cf.Retrieve(ctx, UnsafeHandleFromID[F](t, ids[5]))
		if err != nil {
			return zero, err
		}
		g, err := cg.Retrieve(ctx, UnsafeHandleFromID[G](t, ids[6]))
		if err != nil {
			return zero, err
		}
		return Tuple7[A, B, C, D, E, F, G]{First: a, Second: b, Third: c, Fourth: d, Fifth: e, Sixth: f, Seventh: g}, nil
	}
	return conv
}
