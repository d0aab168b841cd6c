package serialize

import (
	"sort"

	"github.com/philipluk/primeclue"
	"github.com/philipluk/primeclue/data"
	"github.com/philipluk/primeclue/forest"
	"github.com/philipluk/primeclue/function"
	"github.com/philipluk/primeclue/node"
	"github.com/philipluk/primeclue/score"
	"github.com/philipluk/primeclue/tree"
)

func SerializeClass(s *Serializator, c data.Class) {
	SerializeUint16(s, uint16(c))
}

func DeserializeClass(s *Serializator) (data.Class, error) {
	v, err := DeserializeUint16(s)
	return data.Class(v), err
}

func SerializeOutcome(s *Serializator, o data.Outcome) {
	SerializeClass(s, o.Class)
	SerializeFloat32(s, o.Reward)
	SerializeFloat32(s, o.Penalty)
}

func DeserializeOutcome(s *Serializator) (data.Outcome, error) {
	class, err := DeserializeClass(s)
	if err != nil {
		return data.Outcome{}, err
	}
	reward, err := DeserializeFloat32(s)
	if err != nil {
		return data.Outcome{}, err
	}
	penalty, err := DeserializeFloat32(s)
	if err != nil {
		return data.Outcome{}, err
	}
	return data.Outcome{Class: class, Reward: reward, Penalty: penalty}, nil
}

func SerializeInputShape(s *Serializator, shape data.InputShape) {
	SerializeInt(s, shape.Rows)
	SerializeInt(s, shape.Columns)
}

func DeserializeInputShape(s *Serializator) (data.InputShape, error) {
	rows, err := DeserializeInt(s)
	if err != nil {
		return data.InputShape{}, err
	}
	cols, err := DeserializeInt(s)
	if err != nil {
		return data.InputShape{}, err
	}
	return data.InputShape{Rows: rows, Columns: cols}, nil
}

func SerializeWeight(s *Serializator, w node.Weight) {
	SerializeFloat32(s, float32(w))
}

func DeserializeWeight(s *Serializator) (node.Weight, error) {
	v, err := DeserializeFloat32(s)
	return node.Weight(v), err
}

// serializeKind appends a node's discriminator token followed by its
// payload. An unrecognized Kind is a programmer invariant, not user input,
// so it panics rather than returning an error.
func serializeKind(s *Serializator, k node.Kind) {
	switch n := k.(type) {
	case *node.DataValueNode:
		s.AddString("DataValue")
		SerializeInt(s, n.Row)
		SerializeInt(s, n.Col)
	case *node.StdDevNode:
		s.AddString("StdDev")
		SerializeInt(s, n.Row)
		SerializeInt(s, n.Col)
	case *node.ConstantNode:
		s.AddString("Constant")
		s.AddString(n.Name)
	case *node.UnaryNode:
		s.AddString("OneArgNode")
		s.AddString(n.Op.Name)
		serializeWeighted(s, &n.Child)
	case *node.BinaryNode:
		s.AddString("TwoArgNode")
		s.AddString(n.Op.Name)
		serializeWeighted(s, &n.Left)
		serializeWeighted(s, &n.Right)
	default:
		panic("serialize: unknown node kind")
	}
}

func deserializeKind(s *Serializator) (node.Kind, error) {
	disc, err := s.NextToken()
	if err != nil {
		return nil, err
	}
	switch disc {
	case "DataValue":
		row, col, err := deserializeRowCol(s)
		if err != nil {
			return nil, err
		}
		return &node.DataValueNode{Row: row, Col: col}, nil
	case "StdDev":
		row, col, err := deserializeRowCol(s)
		if err != nil {
			return nil, err
		}
		return &node.StdDevNode{Row: row, Col: col}, nil
	case "Constant":
		name, err := DeserializeString(s)
		if err != nil {
			return nil, err
		}
		c, ok := function.LookupConstant(name)
		if !ok {
			return nil, primeclue.Errorf("unknown constant name %q", name)
		}
		return &node.ConstantNode{Name: c.Name, Value: c.Value}, nil
	case "OneArgNode":
		name, err := DeserializeString(s)
		if err != nil {
			return nil, err
		}
		op, ok := function.LookupUnary(name)
		if !ok {
			return nil, primeclue.Errorf("unknown unary operator name %q", name)
		}
		child, err := deserializeWeighted(s)
		if err != nil {
			return nil, err
		}
		return &node.UnaryNode{Op: op, Child: *child}, nil
	case "TwoArgNode":
		name, err := DeserializeString(s)
		if err != nil {
			return nil, err
		}
		op, ok := function.LookupBinary(name)
		if !ok {
			return nil, primeclue.Errorf("unknown binary operator name %q", name)
		}
		left, err := deserializeWeighted(s)
		if err != nil {
			return nil, err
		}
		right, err := deserializeWeighted(s)
		if err != nil {
			return nil, err
		}
		return &node.BinaryNode{Op: op, Left: *left, Right: *right}, nil
	default:
		return nil, primeclue.Errorf("unknown node discriminator %q", disc)
	}
}

func deserializeRowCol(s *Serializator) (row, col int, err error) {
	row, err = DeserializeInt(s)
	if err != nil {
		return 0, 0, err
	}
	col, err = DeserializeInt(s)
	if err != nil {
		return 0, 0, err
	}
	return row, col, nil
}

func serializeWeighted(s *Serializator, w *node.Weighted) {
	SerializeWeight(s, w.W)
	serializeKind(s, w.N)
}

func deserializeWeighted(s *Serializator) (*node.Weighted, error) {
	w, err := DeserializeWeight(s)
	if err != nil {
		return nil, err
	}
	k, err := deserializeKind(s)
	if err != nil {
		return nil, err
	}
	return &node.Weighted{W: w, N: k}, nil
}

func SerializeTree(s *Serializator, t *tree.Tree) {
	serializeWeighted(s, t.Root)
	SerializeInputShape(s, t.Shape)
	SerializeInt(s, t.NodeCount)
}

func DeserializeTree(s *Serializator) (*tree.Tree, error) {
	root, err := deserializeWeighted(s)
	if err != nil {
		return nil, err
	}
	shape, err := DeserializeInputShape(s)
	if err != nil {
		return nil, err
	}
	nodeCount, err := DeserializeInt(s)
	if err != nil {
		return nil, err
	}
	return &tree.Tree{Root: root, Shape: shape, NodeCount: nodeCount}, nil
}

func SerializeObjective(s *Serializator, o score.Objective) {
	s.AddString(o.String())
}

func DeserializeObjective(s *Serializator) (score.Objective, error) {
	tok, err := s.NextToken()
	if err != nil {
		return 0, err
	}
	switch tok {
	case "Cost":
		return score.Cost, nil
	case "AUC":
		return score.AUC, nil
	case "Accuracy":
		return score.Accuracy, nil
	default:
		return 0, primeclue.Errorf("unknown objective %q", tok)
	}
}

func SerializeThreshold(s *Serializator, t score.Threshold) {
	SerializeFloat32(s, t.Value)
}

func DeserializeThreshold(s *Serializator) (score.Threshold, error) {
	v, err := DeserializeFloat32(s)
	return score.Threshold{Value: v}, err
}

func SerializeScore(s *Serializator, sc score.Score) {
	SerializeObjective(s, sc.Objective)
	SerializeClass(s, sc.Class)
	SerializeFloat32(s, sc.Value)
	SerializeThreshold(s, sc.Threshold)
}

func DeserializeScore(s *Serializator) (score.Score, error) {
	objective, err := DeserializeObjective(s)
	if err != nil {
		return score.Score{}, err
	}
	class, err := DeserializeClass(s)
	if err != nil {
		return score.Score{}, err
	}
	value, err := DeserializeFloat32(s)
	if err != nil {
		return score.Score{}, err
	}
	threshold, err := DeserializeThreshold(s)
	if err != nil {
		return score.Score{}, err
	}
	return score.Score{Objective: objective, Class: class, Value: value, Threshold: threshold}, nil
}

func SerializeScoredTree(s *Serializator, st tree.ScoredTree) {
	SerializeScore(s, st.Score)
	SerializeTree(s, st.Tree)
}

func DeserializeScoredTree(s *Serializator) (tree.ScoredTree, error) {
	sc, err := DeserializeScore(s)
	if err != nil {
		return tree.ScoredTree{}, err
	}
	t, err := DeserializeTree(s)
	if err != nil {
		return tree.ScoredTree{}, err
	}
	return tree.ScoredTree{Tree: t, Score: sc}, nil
}

// SerializeClassifier writes the class map (in map iteration order), then
// every class's ScoredTree in ascending class order, the order
// DeserializeClassifier relies on to pair trees back up with classes.
func SerializeClassifier(s *Serializator, c *forest.Classifier) {
	SerializeMap(s, c.ClassMap, SerializeClass, SerializeString)
	trees := make([]tree.ScoredTree, 0, len(c.Trees))
	for _, class := range sortedClasses(c.Trees) {
		trees = append(trees, c.Trees[class])
	}
	SerializeSlice(s, trees, SerializeScoredTree)
}

// DeserializeClassifier reads back a classifier. The trees are paired back up
// with classes by position, reading them in the same ascending-class order
// SerializeClassifier wrote them in (the class stored in each tree's Score is
// not consulted), which requires the written count to match the class map's
// size.
func DeserializeClassifier(s *Serializator) (*forest.Classifier, error) {
	classMap, err := DeserializeMap(s, DeserializeClass, DeserializeString)
	if err != nil {
		return nil, err
	}
	trees, err := DeserializeSlice(s, DeserializeScoredTree)
	if err != nil {
		return nil, err
	}
	if len(trees) != len(classMap) {
		return nil, primeclue.Errorf("classifier tree count %d does not match class map size %d", len(trees), len(classMap))
	}
	classes := sortedClassKeys(classMap)
	byClass := make(map[data.Class]tree.ScoredTree, len(trees))
	for i, class := range classes {
		byClass[class] = trees[i]
	}
	return forest.NewClassifier(classMap, byClass)
}

func sortedClasses(trees map[data.Class]tree.ScoredTree) []data.Class {
	classes := make([]data.Class, 0, len(trees))
	for class := range trees {
		classes = append(classes, class)
	}
	sortClasses(classes)
	return classes
}

func sortedClassKeys(classMap map[data.Class]string) []data.Class {
	classes := make([]data.Class, 0, len(classMap))
	for class := range classMap {
		classes = append(classes, class)
	}
	sortClasses(classes)
	return classes
}

func sortClasses(classes []data.Class) {
	sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })
}
