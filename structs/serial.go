package structs

import (
	"sort"

	"github.com/deneonet/benc"
	bstd "github.com/deneonet/benc/std"
	"github.com/pkg/errors"
)

// Counts are decoded before their elements, so a corrupt payload can
// claim arbitrarily many. Every element occupies at least one byte;
// counts the remaining buffer cannot hold are rejected before any
// allocation happens.
func checkCount(n int, b []byte, count uint32) error {
	if remaining := len(b) - n; int64(count) > int64(remaining) {
		return errors.Errorf("%d elements claimed with %d bytes left", count, remaining)
	}
	return nil
}

// Binary layout of an ItemStack, offset based so stacks can be embedded
// in slice framing:
// material, count, durability, display name, lore (count + strings),
// enchantments (count + sorted key/level pairs).

func (s *ItemStack) sizePlain() int {
	size := bstd.SizeString(s.Material)
	size += bstd.SizeInt32() * 2
	size += bstd.SizeString(s.DisplayName)
	size += bstd.SizeUint32()
	for _, line := range s.Lore {
		size += bstd.SizeString(line)
	}
	size += bstd.SizeUint32()
	for name := range s.Enchantments {
		size += bstd.SizeString(name) + bstd.SizeInt32()
	}
	return size
}

func (s *ItemStack) marshalPlain(n int, b []byte) int {
	n = bstd.MarshalString(n, b, s.Material)
	n = bstd.MarshalInt32(n, b, s.Count)
	n = bstd.MarshalInt32(n, b, s.Durability)
	n = bstd.MarshalString(n, b, s.DisplayName)
	n = bstd.MarshalUint32(n, b, uint32(len(s.Lore)))
	for _, line := range s.Lore {
		n = bstd.MarshalString(n, b, line)
	}
	// Sorted for a deterministic encoding of the same stack.
	names := make([]string, 0, len(s.Enchantments))
	for name := range s.Enchantments {
		names = append(names, name)
	}
	sort.Strings(names)
	n = bstd.MarshalUint32(n, b, uint32(len(names)))
	for _, name := range names {
		n = bstd.MarshalString(n, b, name)
		n = bstd.MarshalInt32(n, b, s.Enchantments[name])
	}
	return n
}

func (s *ItemStack) unmarshalPlain(n int, b []byte) (int, error) {
	var err error
	if n, s.Material, err = bstd.UnmarshalString(n, b); err != nil {
		return n, err
	}
	if n, s.Count, err = bstd.UnmarshalInt32(n, b); err != nil {
		return n, err
	}
	if n, s.Durability, err = bstd.UnmarshalInt32(n, b); err != nil {
		return n, err
	}
	if n, s.DisplayName, err = bstd.UnmarshalString(n, b); err != nil {
		return n, err
	}
	var count uint32
	if n, count, err = bstd.UnmarshalUint32(n, b); err != nil {
		return n, err
	}
	if err := checkCount(n, b, count); err != nil {
		return n, err
	}
	if count > 0 {
		s.Lore = make([]string, count)
		for i := range s.Lore {
			if n, s.Lore[i], err = bstd.UnmarshalString(n, b); err != nil {
				return n, err
			}
		}
	}
	if n, count, err = bstd.UnmarshalUint32(n, b); err != nil {
		return n, err
	}
	if err := checkCount(n, b, count); err != nil {
		return n, err
	}
	if count > 0 {
		s.Enchantments = make(map[string]int32, count)
		for i := uint32(0); i < count; i++ {
			var name string
			var level int32
			if n, name, err = bstd.UnmarshalString(n, b); err != nil {
				return n, err
			}
			if n, level, err = bstd.UnmarshalInt32(n, b); err != nil {
				return n, err
			}
			s.Enchantments[name] = level
		}
	}
	return n, nil
}

func (s *ItemStack) Size() int {
	return s.sizePlain()
}

func (s *ItemStack) Marshal(b []byte) {
	s.marshalPlain(0, b)
}

func (s *ItemStack) Unmarshal(b []byte) error {
	n, err := s.unmarshalPlain(0, b)
	if err != nil {
		return err
	}
	return benc.VerifyUnmarshal(n, b)
}

// ItemStacks framing: element count, then a presence flag per element so
// nil elements survive the round trip at their exact positions.

func (s *ItemStacks) Size() int {
	size := bstd.SizeUint32()
	for _, stack := range *s {
		size += bstd.SizeBool()
		if stack != nil {
			size += stack.sizePlain()
		}
	}
	return size
}

func (s *ItemStacks) Marshal(b []byte) {
	n := bstd.MarshalUint32(0, b, uint32(len(*s)))
	for _, stack := range *s {
		n = bstd.MarshalBool(n, b, stack != nil)
		if stack != nil {
			n = stack.marshalPlain(n, b)
		}
	}
}

func (s *ItemStacks) Unmarshal(b []byte) error {
	n, count, err := bstd.UnmarshalUint32(0, b)
	if err != nil {
		return err
	}
	if err := checkCount(n, b, count); err != nil {
		return err
	}
	result := make(ItemStacks, count)
	for i := uint32(0); i < count; i++ {
		var present bool
		if n, present, err = bstd.UnmarshalBool(n, b); err != nil {
			return err
		}
		if !present {
			continue
		}
		stack := &ItemStack{}
		if n, err = stack.unmarshalPlain(n, b); err != nil {
			return err
		}
		result[i] = stack
	}
	if err := benc.VerifyUnmarshal(n, b); err != nil {
		return err
	}
	*s = result
	return nil
}
